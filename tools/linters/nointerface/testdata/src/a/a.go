package a

// A payload that could hold any JSON value.
type Payload interface{} // want "use 'any' instead of 'interface\\{\\}' \\(available since Go 1.18\\)"

type PayloadAny = any

func writeFrame(frame interface{}) { // want "use 'any' instead of 'interface\\{\\}' \\(available since Go 1.18\\)"
	_ = frame
}

func writeFrameAny(frame any) {
	_ = frame
}

func decodeBody() interface{} { // want "use 'any' instead of 'interface\\{\\}' \\(available since Go 1.18\\)"
	return nil
}

func decodeBodyAny() any {
	return nil
}

type errorDetail struct {
	Field   string
	Message interface{} // want "use 'any' instead of 'interface\\{\\}' \\(available since Go 1.18\\)"
}

var changes map[string]interface{} // want "use 'any' instead of 'interface\\{\\}' \\(available since Go 1.18\\)"

var changesAny map[string]any

var frames []interface{} // want "use 'any' instead of 'interface\\{\\}' \\(available since Go 1.18\\)"

var framesAny []any

var results chan interface{} // want "use 'any' instead of 'interface\\{\\}' \\(available since Go 1.18\\)"

var batches map[string][]interface{} // want "use 'any' instead of 'interface\\{\\}' \\(available since Go 1.18\\)"

func assertPayload() {
	var v interface{} // want "use 'any' instead of 'interface\\{\\}' \\(available since Go 1.18\\)"
	_ = v.(string)
}

func sendBoth(a interface{}, b interface{}) { // want "use 'any' instead of 'interface\\{\\}' \\(available since Go 1.18\\)" "use 'any' instead of 'interface\\{\\}' \\(available since Go 1.18\\)"
	_, _ = a, b
}

func nolintGeneral() {
	//nolint
	var x interface{}
	_ = x
}

func nolintSpecific() {
	var x interface{} //nolint:nointerface
	_ = x
}

func nolintOtherLinter() {
	var x interface{} //nolint:otherlinter // want "use 'any' instead of 'interface\\{\\}' \\(available since Go 1.18\\)"
	_ = x
}

// Interfaces with methods are real contracts and stay as they are.
type Publisher interface {
	Publish(topic string, payload any) error
}

func usePublisher(p Publisher) {
	_ = p
}
