package e2e

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type ChatScenarioSuite struct {
	BaseSuite
}

type account struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

func (s *ChatScenarioSuite) register(name string) account {
	code, doc := s.Call(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":       name + "-" + uuid.NewString()[:8] + "@e2e.test",
		"password":    "Str0ng!Passw0rd",
		"displayName": name,
	})
	s.Require().Equal(http.StatusCreated, code, doc.ResponseMessage)

	var a account
	s.Require().NoError(json.Unmarshal(doc.ResponseResult, &a))
	return a
}

func (s *ChatScenarioSuite) TestOneToOneChat() {
	s.Step("Register two accounts")
	alice := s.register("alice")
	bob := s.register("bob")

	s.Step("Both go online")
	aliceWS := s.Dial("/socket")
	s.Emit(aliceWS, "identify", map[string]string{"userId": alice.UserID, "token": alice.Token})
	s.Expect(aliceWS, "identified")

	bobWS := s.Dial("/socket")
	s.Emit(bobWS, "identify", map[string]string{"userId": bob.UserID, "token": bob.Token})
	s.Expect(bobWS, "identified")

	s.Step("Alice writes to Bob")
	s.Emit(aliceWS, "sendMessage", map[string]string{"receiverId": bob.UserID, "body": "hello bob"})

	var received struct {
		Message struct {
			SenderID string `json:"senderId"`
			Body     string `json:"body"`
		} `json:"message"`
	}
	s.Require().NoError(json.Unmarshal(s.Expect(bobWS, "message"), &received))
	s.Equal(alice.UserID, received.Message.SenderID)
	s.Equal("hello bob", received.Message.Body)
	s.Expect(aliceWS, "message")

	s.Step("Bob sees one unread message")
	code, doc := s.Call(http.MethodGet, "/api/v1/chat/unread", bob.Token, nil)
	s.Require().Equal(http.StatusOK, code)
	s.JSONEq(`{"unreadCount":1}`, string(doc.ResponseResult))

	s.Step("Alice is listed online")
	code, _ = s.Call(http.MethodGet, "/api/v1/presence/"+alice.UserID, bob.Token, nil)
	s.Equal(http.StatusOK, code)
}

func (s *ChatScenarioSuite) TestLegacyNotificationPush() {
	s.Step("Register and connect on the legacy endpoint")
	carol := s.register("carol")
	ws := s.Dial("/ws")
	s.Require().NoError(ws.WriteJSON(map[string]string{"requestType": "Identify", "token": carol.Token}))

	var ack document
	s.Require().NoError(ws.ReadJSON(&ack))
	s.Equal(http.StatusOK, ack.ResponseCode)

	s.Step("A notification is pushed")
	code, _ := s.Call(http.MethodPost, "/api/v1/notifications", carol.Token, map[string]string{
		"targetUserId": carol.UserID,
		"title":        "Order shipped",
		"body":         "Your order is on its way",
	})
	s.Require().Equal(http.StatusCreated, code)

	var pushed map[string]any
	s.Require().NoError(ws.ReadJSON(&pushed))
	s.Contains(pushed, "responseResult")
}

func TestChatScenarioSuite(t *testing.T) {
	suite.Run(t, new(ChatScenarioSuite))
}
