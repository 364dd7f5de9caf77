package socket

import (
	"encoding/json"
	"fanous-live/domain"
	"fanous-live/errors"
	"net/http"
)

// Client event names. The second name of each pair is the one older web
// clients still emit.
const (
	eventIdentify     = "identify"
	eventOnlineUser   = "onlineUser"
	eventSendMessage  = "sendMessage"
	eventOneToOneChat = "oneToOneChat"
)

// eventFrame is the named-event dialect: {"event": "...", "data": {...}}.
type eventFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type identifyData struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Token       string `json:"token"`
}

type sendMessageData struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Body       string `json:"body"`
	Message    string `json:"message"`
}

func (d sendMessageData) command() domain.SendMessageCommand {
	body := d.Body
	if body == "" {
		body = d.Message
	}
	return domain.SendMessageCommand{SenderID: d.SenderID, ReceiverID: d.ReceiverID, Body: body}
}

func encodeEvent(envelope domain.Envelope) ([]byte, error) {
	return json.Marshal(struct {
		Event domain.EventName `json:"event"`
		Data  any              `json:"data"`
	}{Event: envelope.Event, Data: envelope.Data})
}

// Legacy request types.
const (
	requestNotificationList = "NotificationList"
	requestIdentify         = "Identify"
	requestChatHistory      = "ChatHistory"
)

// legacyRequest is one frame of the request-type dialect. Which fields are
// set decides what is asked for.
type legacyRequest struct {
	RequestType string `json:"requestType"`
	Type        string `json:"type"`
	Token       string `json:"token"`
	UserToken   string `json:"user_token"`
	ReceiverID  string `json:"receiverId"`
	MarkRead    *bool  `json:"markRead"`
}

// legacyResponse mirrors the REST error documents.
type legacyResponse struct {
	ResponseCode    int    `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
	ResponseResult  any    `json:"responseResult,omitempty"`
}

func okResponse(message string, result any) legacyResponse {
	return legacyResponse{ResponseCode: http.StatusOK, ResponseMessage: message, ResponseResult: result}
}

func errorResponse(err error) legacyResponse {
	return legacyResponse{ResponseCode: errors.HTTPStatus(err), ResponseMessage: errors.PublicMessage(err)}
}

// encodeLegacy frames pushes and replies as response documents; the event
// name becomes the response message.
func encodeLegacy(envelope domain.Envelope) ([]byte, error) {
	switch data := envelope.Data.(type) {
	case legacyResponse:
		return json.Marshal(data)
	case domain.ErrorPayload:
		return json.Marshal(legacyResponse{ResponseCode: data.Code, ResponseMessage: data.Message})
	default:
		return json.Marshal(okResponse(string(envelope.Event), envelope.Data))
	}
}
