package log

import (
	"encoding/json"
	"log"
	"sync/atomic"
	"time"
)

type entry struct {
	TS       string         `json:"ts"`
	Level    string         `json:"level"`
	Action   string         `json:"action,omitempty"`
	SaleID   string         `json:"sale_id,omitempty"`
	Customer string         `json:"customer,omitempty"`
	Err      string         `json:"err,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

var debug atomic.Bool

// SetDebug turns Debug output on or off.
func SetDebug(on bool) { debug.Store(on) }

func write(level, action string, err error, fields map[string]any) {
	e := entry{TS: time.Now().UTC().Format(time.RFC3339), Level: level, Action: action}
	if len(fields) > 0 {
		e.Fields = make(map[string]any, len(fields))
		for k, v := range fields {
			switch k {
			case "sale_id":
				e.SaleID, _ = v.(string)
			case "customer":
				e.Customer, _ = v.(string)
			default:
				e.Fields[k] = v
			}
		}
		if len(e.Fields) == 0 {
			e.Fields = nil
		}
	}
	if err != nil {
		e.Err = err.Error()
	}
	b, _ := json.Marshal(e)
	log.Println(string(b))
}

func Debug(action string, fields map[string]any) {
	if debug.Load() {
		write("debug", action, nil, fields)
	}
}
func Info(action string, fields map[string]any)  { write("info", action, nil, fields) }
func Audit(action string, fields map[string]any) { write("audit", action, nil, fields) }
func Security(action string, fields map[string]any) {
	write("warn", action, nil, fields)
}
func Error(action string, err error, fields map[string]any) {
	write("error", action, err, fields)
}
