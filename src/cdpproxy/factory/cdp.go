package factory

import "fmt"

// ScriptParsed is a Debugger.scriptParsed event as a target sends it.
func ScriptParsed(scriptID, url string) []byte {
	return []byte(fmt.Sprintf(`{"method":"Debugger.scriptParsed","params":{"scriptId":%q,"url":%q,"startLine":0,"startColumn":0,"endLine":200,"endColumn":0,"executionContextId":1,"hash":"h"}}`, scriptID, url))
}

// SetBreakpointByURL is a Debugger.setBreakpointByUrl request as a debugger client sends it.
func SetBreakpointByURL(id int64, url string, line int) []byte {
	return []byte(fmt.Sprintf(`{"id":%d,"method":"Debugger.setBreakpointByUrl","params":{"url":%q,"lineNumber":%d,"columnNumber":0}}`, id, url, line))
}

// ExecutionContextsCleared is the event a target sends on page reload.
func ExecutionContextsCleared() []byte {
	return []byte(`{"method":"Runtime.executionContextsCleared","params":{}}`)
}
