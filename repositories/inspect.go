package repositories

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Row is a human readable view of one stored key, used by the inspect tool.
type Row struct {
	Kind    string
	Key     string
	Summary string
}

// Describe decodes a raw key/value pair according to its key prefix.
func Describe(key, value []byte) Row {
	k := string(key)
	kind, _, _ := strings.Cut(k, ":")
	row := Row{Kind: kind, Key: k}

	switch kind {
	case "chat":
		m, err := decodeMessage(value)
		if err != nil {
			row.Summary = err.Error()
			break
		}
		row.Summary = fmt.Sprintf("%s -> %s read=%t lang=%s %q", m.SenderID, m.ReceiverID, m.Read, m.Lang, m.Body)
	case "inbox", "userid":
		row.Summary = "-> " + string(value)
	case "notif":
		n, err := decodeNotification(value)
		if err != nil {
			row.Summary = err.Error()
			break
		}
		row.Summary = fmt.Sprintf("read=%t deleted=%t %q", n.Read, n.Deleted, n.Title)
	case "user":
		u, err := decodeUser(value)
		if err != nil {
			row.Summary = err.Error()
			break
		}
		row.Summary = fmt.Sprintf("%s %q roles=%s", u.ID, u.DisplayName, strings.Join(u.Roles, ","))
	default:
		row.Summary = fmt.Sprintf("%d bytes", len(value))
	}
	return row
}

// Dump walks every key starting with prefix, at most limit rows when limit > 0.
func Dump(db *badger.DB, prefix string, limit int) ([]Row, error) {
	var rows []Row
	err := db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(prefix)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if limit > 0 && len(rows) == limit {
				break
			}
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rows = append(rows, Describe(item.KeyCopy(nil), value))
		}
		return nil
	})
	return rows, err
}
