package main

import (
	"chat-relay/storage"
	"flag"
	"log"
	"log/slog"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Prints the messenger state kept in a Badger directory (STATE_BACKEND=badger).
func main() {
	dbPath := flag.String("db", "messenger_state", "Path to the messenger badger state")
	flag.Parse()

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	state := storage.NewBadgerStore(db, logs.GetLoggerFromLevel(slog.LevelWarn)).Load()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Value"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")

	session := "none"
	if !state.Session().IsZero() {
		session = "present"
	}
	table.Append([]string{"session", session})
	if len(state.User) > 0 {
		table.Append([]string{"user", string(state.User)})
	}

	chats := make([]string, 0, len(state.Wallpapers))
	for chat := range state.Wallpapers {
		chats = append(chats, chat)
	}
	sort.Strings(chats)
	for _, chat := range chats {
		table.Append([]string{"wallpaper:" + chat, state.Wallpapers[chat]})
	}
	extras := make([]string, 0, len(state.Extra))
	for key := range state.Extra {
		extras = append(extras, key)
	}
	sort.Strings(extras)
	for _, key := range extras {
		table.Append([]string{key, string(state.Extra[key])})
	}
	table.Render()
}
