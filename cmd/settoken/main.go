// Command settoken provisions the device upload token. The camera
// presents this token on every upload; until one is set the intake
// endpoint accepts unauthenticated uploads.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/edwintenbrinke/motion-detection/internal/database"

	"golang.org/x/term"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultDatabaseDir = "/database"
	minTokenLength     = 8
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	databaseDir := os.Getenv("MOTION_DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}
	dbPath := filepath.Join(databaseDir, "motion.db")

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure MOTION_DATABASE_DIR is set correctly (current: %s)\n", databaseDir)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	switch command {
	case "set":
		if !setToken(ctx, db) {
			os.Exit(1)
		}
	case "status":
		showStatus(ctx, db)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Motion Detection Device Token Management")
	fmt.Println("")
	fmt.Println("Usage: settoken <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  set     - Set or replace the device upload token")
	fmt.Println("  status  - Check if a token is configured")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Printf("  MOTION_DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
}

func setToken(ctx context.Context, db *database.Database) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	fmt.Print("New Token: ")
	token, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		return false
	}

	fmt.Print("Confirm Token: ")
	confirm, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		return false
	}

	if !bytes.Equal(token, confirm) {
		fmt.Fprintln(os.Stderr, "Error: Tokens do not match")
		return false
	}

	if len(token) < minTokenLength {
		fmt.Fprintf(os.Stderr, "Error: Token must be at least %d characters\n", minTokenLength)
		return false
	}

	if err := db.SetDeviceToken(ctx, string(token)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to store token: %v\n", err)
		return false
	}

	fmt.Println("Device token updated successfully.")
	fmt.Println("Update the camera's upload configuration to match.")
	return true
}

func showStatus(ctx context.Context, db *database.Database) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if db.HasDeviceToken(ctx) {
		fmt.Println("Status: Device token is configured")
	} else {
		fmt.Println("Status: No device token configured (uploads are unauthenticated)")
	}
}
