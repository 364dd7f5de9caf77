package repositories

import (
	"fanous-live/domain"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Records are stored as protobuf wire messages. Field numbers below are
// part of the on-disk format and must never be reused.
const (
	messageID       protowire.Number = 1
	messageSender   protowire.Number = 2
	messageReceiver protowire.Number = 3
	messageBody     protowire.Number = 4
	messageLang     protowire.Number = 5
	messageCensored protowire.Number = 6
	messageSentAt   protowire.Number = 7
	messageRead     protowire.Number = 8

	notificationID        protowire.Number = 1
	notificationUser      protowire.Number = 2
	notificationTitle     protowire.Number = 3
	notificationBody      protowire.Number = 4
	notificationCreatedAt protowire.Number = 5
	notificationRead      protowire.Number = 6
	notificationDeleted   protowire.Number = 7

	userID          protowire.Number = 1
	userEmail       protowire.Number = 2
	userDisplayName protowire.Number = 3
	userPassword    protowire.Number = 4
	userRoles       protowire.Number = 5
	userCreatedAt   protowire.Number = 6
)

type record struct {
	buf []byte
}

func (r *record) putString(num protowire.Number, v string) {
	if v == "" {
		return
	}
	r.buf = protowire.AppendTag(r.buf, num, protowire.BytesType)
	r.buf = protowire.AppendString(r.buf, v)
}

func (r *record) putStrings(num protowire.Number, values []string) {
	for _, v := range values {
		r.buf = protowire.AppendTag(r.buf, num, protowire.BytesType)
		r.buf = protowire.AppendString(r.buf, v)
	}
}

func (r *record) putBool(num protowire.Number, v bool) {
	if !v {
		return
	}
	r.buf = protowire.AppendTag(r.buf, num, protowire.VarintType)
	r.buf = protowire.AppendVarint(r.buf, protowire.EncodeBool(v))
}

func (r *record) putTime(num protowire.Number, t time.Time) {
	if t.IsZero() {
		return
	}
	r.buf = protowire.AppendTag(r.buf, num, protowire.VarintType)
	r.buf = protowire.AppendVarint(r.buf, protowire.EncodeZigZag(t.UnixNano()))
}

// field is one decoded value, only the member matching its wire type is set.
type field struct {
	varint uint64
	bytes  []byte
}

func (f field) String() string { return string(f.bytes) }
func (f field) Bool() bool { return protowire.DecodeBool(f.varint) }
func (f field) Time() time.Time { return time.Unix(0, protowire.DecodeZigZag(f.varint)).UTC() }
func (f field) UUID() (uuid.UUID, error) { return uuid.ParseBytes(f.bytes) }

// scan walks every field of b. Unknown wire types are skipped.
func scan(b []byte, visit func(num protowire.Number, f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var f field
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			f.varint = v
			b = b[m:]
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			f.bytes = v
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			b = b[m:]
			continue
		}

		if err := visit(num, f); err != nil {
			return err
		}
	}
	return nil
}

func encodeMessage(m domain.Message) []byte {
	var r record
	r.putString(messageID, m.ID.String())
	r.putString(messageSender, m.SenderID)
	r.putString(messageReceiver, m.ReceiverID)
	r.putString(messageBody, m.Body)
	r.putString(messageLang, m.Lang)
	r.putStrings(messageCensored, m.Censored)
	r.putTime(messageSentAt, m.SentAt)
	r.putBool(messageRead, m.Read)
	return r.buf
}

func decodeMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	err := scan(b, func(num protowire.Number, f field) error {
		switch num {
		case messageID:
			id, err := f.UUID()
			if err != nil {
				return err
			}
			m.ID = id
		case messageSender:
			m.SenderID = f.String()
		case messageReceiver:
			m.ReceiverID = f.String()
		case messageBody:
			m.Body = f.String()
		case messageLang:
			m.Lang = f.String()
		case messageCensored:
			m.Censored = append(m.Censored, f.String())
		case messageSentAt:
			m.SentAt = f.Time()
		case messageRead:
			m.Read = f.Bool()
		}
		return nil
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}

func encodeNotification(n domain.Notification) []byte {
	var r record
	r.putString(notificationID, n.ID.String())
	r.putString(notificationUser, n.UserID)
	r.putString(notificationTitle, n.Title)
	r.putString(notificationBody, n.Body)
	r.putTime(notificationCreatedAt, n.CreatedAt)
	r.putBool(notificationRead, n.Read)
	r.putBool(notificationDeleted, n.Deleted)
	return r.buf
}

func decodeNotification(b []byte) (domain.Notification, error) {
	var n domain.Notification
	err := scan(b, func(num protowire.Number, f field) error {
		switch num {
		case notificationID:
			id, err := f.UUID()
			if err != nil {
				return err
			}
			n.ID = id
		case notificationUser:
			n.UserID = f.String()
		case notificationTitle:
			n.Title = f.String()
		case notificationBody:
			n.Body = f.String()
		case notificationCreatedAt:
			n.CreatedAt = f.Time()
		case notificationRead:
			n.Read = f.Bool()
		case notificationDeleted:
			n.Deleted = f.Bool()
		}
		return nil
	})
	if err != nil {
		return domain.Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	return n, nil
}

func encodeUser(u domain.User) []byte {
	var r record
	r.putString(userID, u.ID)
	r.putString(userEmail, u.Email)
	r.putString(userDisplayName, u.DisplayName)
	r.putString(userPassword, u.PasswordHash)
	r.putStrings(userRoles, u.Roles)
	r.putTime(userCreatedAt, u.CreatedAt)
	return r.buf
}

func decodeUser(b []byte) (domain.User, error) {
	var u domain.User
	err := scan(b, func(num protowire.Number, f field) error {
		switch num {
		case userID:
			u.ID = f.String()
		case userEmail:
			u.Email = f.String()
		case userDisplayName:
			u.DisplayName = f.String()
		case userPassword:
			u.PasswordHash = f.String()
		case userRoles:
			u.Roles = append(u.Roles, f.String())
		case userCreatedAt:
			u.CreatedAt = f.Time()
		}
		return nil
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}
	return u, nil
}
