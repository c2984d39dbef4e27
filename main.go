package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/harrisonrobin/coachsync/pkg/config"
	"github.com/harrisonrobin/coachsync/pkg/store"
	synceng "github.com/harrisonrobin/coachsync/pkg/sync"
	"github.com/harrisonrobin/coachsync/pkg/todoist"
)

func main() {
	// 1. Parse Flags
	accountID := flag.String("account", "", "Account id to reconcile (or to configure with -set-token)")
	syncAll := flag.Bool("all", false, "Reconcile every sync-enabled account")
	validate := flag.String("validate", "", "Validate an external service API token and exit")
	setToken := flag.String("set-token", "", "Store an API token for -account and enable sync")
	disable := flag.Bool("disable", false, "With -set-token: store the token but leave sync disabled")
	dbPath := flag.String("db", "", "Database path (overrides config)")
	flag.Parse()

	ctx := context.Background()

	// 2. Load Config (Priority: Flag > Config > Default)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	// 3. Handle Token Validation (connectivity probe, no store needed)
	if *validate != "" {
		client := todoist.NewClient(cfg.APIBaseURL, *validate, cfg.RequestTimeout())
		if !client.ValidateToken(ctx) {
			log.Fatal("Token validation failed: the external service rejected the token")
		}
		fmt.Println("Token is valid")
		return
	}

	// 4. Open Store
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Error opening store: %v", err)
	}
	defer st.Close()

	// 5. Handle Account Configuration
	if *setToken != "" {
		if *accountID == "" {
			log.Fatal("-set-token requires -account")
		}
		acct := store.Account{ID: *accountID, SyncEnabled: !*disable, APIToken: *setToken}
		if err := st.UpsertAccount(ctx, acct); err != nil {
			log.Fatalf("Error saving account: %v", err)
		}
		fmt.Printf("Account %s configured (sync enabled: %v)\n", *accountID, acct.SyncEnabled)
		return
	}

	// 6. Build Engine (explicit wiring, one client per account token)
	factory := func(token string) synceng.Client {
		return todoist.NewClient(cfg.APIBaseURL, token, cfg.RequestTimeout())
	}
	engine := synceng.NewEngine(st, factory, nil)

	// 7. Reconcile One Account
	if *accountID != "" {
		acct, err := st.GetAccount(ctx, *accountID)
		if err != nil {
			log.Fatalf("Error loading account %s: %v", *accountID, err)
		}
		if !acct.SyncConfigured() {
			fmt.Printf("Account %s: sync disabled or no token, skipping\n", acct.ID)
			return
		}
		runAccount(ctx, engine, acct)
		return
	}

	// 8. Reconcile All Enabled Accounts (sequentially; each account owns a
	// disjoint partition, one failing account never blocks the rest)
	if *syncAll {
		accounts, err := st.ListSyncEnabledAccounts(ctx)
		if err != nil {
			log.Fatalf("Error listing accounts: %v", err)
		}
		for i := range accounts {
			runAccount(ctx, engine, &accounts[i])
		}
		return
	}

	flag.Usage()
}

func runAccount(ctx context.Context, engine *synceng.Engine, acct *store.Account) {
	result, err := engine.ReconcileAccount(ctx, acct.ID, acct.APIToken)
	if err != nil {
		log.Printf("Account %s: reconciliation aborted: %v", acct.ID, err)
		return
	}
	fmt.Printf("Account %s: %s\n", acct.ID, result)
	for _, itemErr := range result.Errors {
		log.Printf("Account %s: %s", acct.ID, itemErr)
	}
}
