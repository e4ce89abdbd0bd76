// Package command decodes control-channel messages into intents and applies
// them to the device context.
package command

import (
	"github.com/bytedance/sonic"
)

const (
	ActionConfigure = "configure"
	ActionPair      = "pair"
	// ActionUnknown stands in for every other action outside of logs.
	ActionUnknown = "unknown"
)

// Field is an optional string value from a message.
type Field struct {
	Value   string
	Present bool
}

func (f Field) Or(def string) string {
	if f.Present {
		return f.Value
	}
	return def
}

// Intent is one of ConfigureIntent, PairIntent or UnknownIntent.
type Intent interface {
	intent()
}

type ConfigureIntent struct {
	SSID       Field
	Password   Field
	Server     Field
	UserID     Field
	DeviceName Field
}

type PairIntent struct {
	Code      Field
	Token     Field
	AccountID Field
}

// UnknownIntent covers unparsable payloads and unrecognised actions.
type UnknownIntent struct {
	Action string
	Reason string
}

func (ConfigureIntent) intent() {}
func (PairIntent) intent()      {}
func (UnknownIntent) intent()   {}

// Decode never fails; anything it cannot interpret becomes UnknownIntent.
func Decode(raw []byte) Intent {
	var doc map[string]any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return UnknownIntent{Reason: "parse: " + err.Error()}
	}
	if doc == nil {
		return UnknownIntent{Reason: "not an object"}
	}

	action, ok := doc["action"].(string)
	if !ok {
		return UnknownIntent{Reason: "missing action"}
	}

	switch action {
	case ActionConfigure:
		return ConfigureIntent{
			SSID:       field(doc, "ssid"),
			Password:   field(doc, "password"),
			Server:     field(doc, "server"),
			UserID:     field(doc, "userId"),
			DeviceName: field(doc, "deviceName"),
		}
	case ActionPair:
		return PairIntent{
			Code:      field(doc, "code"),
			Token:     field(doc, "token"),
			AccountID: field(doc, "accountId"),
		}
	default:
		return UnknownIntent{Action: action, Reason: "unknown action"}
	}
}

// field treats non-string values as absent.
func field(doc map[string]any, key string) Field {
	v, ok := doc[key].(string)
	if !ok {
		return Field{}
	}
	return Field{Value: v, Present: true}
}
