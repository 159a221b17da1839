// Package internal hosts development-only helpers that are not part of the
// public surface of the service.
package internal

import (
	"chat-backend/domain"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Key    string
	Kind   string
	ID     string
	ChatID string
	Status string
	Detail string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer exposes a read-only HTML view over the store on the given
// port. The handler scans whichever key prefix the query names and decodes the
// documents it knows about; everything else is shown raw. Never enable this
// on a public interface.
func StartDebugServer(db *badger.DB, port int, mapper RowMapper, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = DefaultMapper
	}

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("127.0.0.1:%d", port), mux)
	}()
}

// DefaultMapper decodes the store's document families: messages under "msg:",
// chats under "chat:". Index keys carry a sequence pointer and stay raw.
func DefaultMapper(key string, val []byte) InspectRow {
	switch {
	case strings.HasPrefix(key, "msg:"):
		var message domain.Message
		if err := json.Unmarshal(val, &message); err != nil {
			break
		}
		return InspectRow{
			Key:    key,
			Kind:   "MESSAGE",
			ID:     message.ID,
			ChatID: message.ChatID,
			Status: string(message.Status),
			Detail: fmt.Sprintf("%d -> %d: %s", message.SenderID, message.RecipientID, message.Body),
		}
	case strings.HasPrefix(key, "chat:"):
		var chat domain.Chat
		if err := json.Unmarshal(val, &chat); err != nil {
			break
		}
		var names []string
		for _, u := range chat.RelatedUsers {
			names = append(names, u.Username)
		}
		return InspectRow{
			Key:    key,
			Kind:   "CHAT",
			ID:     chat.ID,
			ChatID: chat.ID,
			Detail: fmt.Sprintf("%s (%d messages)", strings.Join(names, ", "), chat.MessagesCount),
		}
	}
	return InspectRow{Key: key, Kind: "RAW", Detail: string(val)}
}
