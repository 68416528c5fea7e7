package stores_test

import (
	"context"
	"fmt"
	"log"

	"github.com/itemdesk/itemdesk/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new SQLite store.
func ExampleNewSQLiteStore() {
	store, err := stores.NewSQLiteStore(stores.Config{
		Path: stores.MemoryPath, // Use in-memory database for example
	})
	if err != nil {
		log.Fatal(err)
	}

	// Initialize the database connection
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_InsertItem demonstrates inserting and reading back an item.
func ExampleSQLiteStore_InsertItem() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: stores.MemoryPath})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	id, err := store.InsertItem(ctx, "Alice", "Engineer")
	if err != nil {
		log.Fatal(err)
	}

	item, err := store.GetItem(ctx, id)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Item %d: %s (%s)\n", item.ID, item.Name, item.Description)
	// Output: Item 1: Alice (Engineer)
}
