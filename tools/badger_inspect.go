package main

import (
	"chat-sync/domain"
	"chat-sync/repositories"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	// rooms are under "room:", messages under "msg:"
	prefix := flag.String("prefix", "", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Created at", "Room", "ID", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !repositories.IsRoomKey(key) && !repositories.IsMessageKey(key) {
				continue
			}

			err := item.Value(func(v []byte) error {
				decoded, err := repositories.Decode(key, v)
				if err != nil {
					// Keep scanning, one broken value should not hide the others
					fmt.Printf("Error decoding key %s: %v\n", key, err)
					return nil
				}
				table.Append(row(key, decoded))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func row(key string, decoded any) []string {
	switch v := decoded.(type) {
	case domain.Room:
		return []string{key, "ROOM", v.CreatedAt.Format("2006-01-02 15:04:05"), v.ID.String(), v.ID.String(), v.Name}
	case domain.Message:
		// First 8 characters of the id are enough to tell messages apart
		id := v.ID.String()[:8]
		return []string{key, "MESSAGE", v.CreatedAt.Format("15:04:05.000"), v.RoomID.String(), id,
			fmt.Sprintf("%s: %s", v.Author, v.Body)}
	default:
		return []string{key, fmt.Sprintf("%T", v), "", "", "", ""}
	}
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		// A crashed writer leaves a log that needs truncating, which read-only mode refuses
		if strings.Contains(err.Error(), "Log truncate required") {
			fmt.Println("Value log needs truncation, repairing")

			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)
			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			_ = db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
