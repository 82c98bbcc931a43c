package protocol

import "encoding/json"

// Op 表示 rosbridge 协议的操作类型
type Op string

const (
	OpAdvertise       Op = "advertise"
	OpPublish         Op = "publish"
	OpSubscribe       Op = "subscribe"
	OpUnsubscribe     Op = "unsubscribe"
	OpCallService     Op = "call_service"
	OpServiceResponse Op = "service_response"
	OpGetParam        Op = "get_param"
	OpSetParam        Op = "set_param"
)

var knownOps = map[Op]struct{}{
	OpAdvertise:       {},
	OpPublish:         {},
	OpSubscribe:       {},
	OpUnsubscribe:     {},
	OpCallService:     {},
	OpServiceResponse: {},
	OpGetParam:        {},
	OpSetParam:        {},
}

// Known reports whether op is part of the wire protocol.
func Known(op Op) bool {
	_, ok := knownOps[op]
	return ok
}

// Envelope 协议帧。每个字段按 op 选用，未用字段省略。
//
// 负载统一用 json.RawMessage：编解码器不需要知道任何机器人消息
// schema，原始字节原样透传给调用方。
type Envelope struct {
	Op Op     `json:"op"`
	ID string `json:"id,omitempty"` // correlation id; echoed by the broker on responses

	// ---- 目标 ----
	Topic   string `json:"topic,omitempty"`
	Service string `json:"service,omitempty"`
	Name    string `json:"name,omitempty"` // parameter name
	Type    string `json:"type,omitempty"` // topic/service message type

	// ---- 负载 ----
	Msg    json.RawMessage `json:"msg,omitempty"`    // publish payload
	Args   json.RawMessage `json:"args,omitempty"`   // call_service arguments
	Values json.RawMessage `json:"values,omitempty"` // service_response values
	Value  json.RawMessage `json:"value,omitempty"`  // param value (get/set)

	// Result 只出现在 service_response：false 表示 broker 端调用失败，
	// Values 里是错误描述。
	Result *bool `json:"result,omitempty"`
}
