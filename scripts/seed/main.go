package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"groupcast/internal/config"
)

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Command-line flags
var (
	ownerID       = flag.String("owner", "seed-user", "Owner ID to create data under")
	groupsCount   = flag.Int("groups", 3, "Number of groups to create")
	contactsCount = flag.Int("contacts", 15, "Number of contacts to create")
	clearData     = flag.Bool("clear", false, "Clear existing seed data before inserting")
	showHelp      = flag.Bool("help", false, "Show usage information")
)

func main() {
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	printInfo("=== Groupcast Database Seeder ===\n")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}

	// Connect to database
	printInfo("Connecting to database...")
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		printError(fmt.Sprintf("Failed to open database connection: %v", err))
		os.Exit(1)
	}
	defer db.Close()

	// Test connection
	if err := db.Ping(); err != nil {
		printError(fmt.Sprintf("Failed to ping database: %v", err))
		os.Exit(1)
	}
	printSuccess("✓ Connected to database\n")

	// Clear data if requested
	if *clearData {
		if err := clearSeedData(db, *ownerID); err != nil {
			printError(fmt.Sprintf("Failed to clear seed data: %v", err))
			os.Exit(1)
		}
	}

	// Seed groups
	groupsCreated, err := seedGroups(db, *ownerID, *groupsCount)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed groups: %v", err))
		os.Exit(1)
	}

	// Seed contacts
	contactsCreated, err := seedContacts(db, *ownerID, *contactsCount)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed contacts: %v", err))
		os.Exit(1)
	}

	// Fill rosters
	membersCreated, err := seedMembers(db, *ownerID)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed members: %v", err))
		os.Exit(1)
	}

	// Print summary
	printInfo("\n=== Seeding Summary ===")
	printSuccess(fmt.Sprintf("✓ Groups created: %d", groupsCreated))
	printSuccess(fmt.Sprintf("✓ Contacts created: %d", contactsCreated))
	printSuccess(fmt.Sprintf("✓ Memberships created: %d", membersCreated))
	printInfo(fmt.Sprintf("\nSend requests with the header: X-User-ID: %s", *ownerID))
	printInfo("Seeding completed successfully!")
}

// clearSeedData removes everything owned by the seed owner. Members go away
// through the group and contact cascades.
func clearSeedData(db *sql.DB, owner string) error {
	printWarning(fmt.Sprintf("Clearing data owned by %q...", owner))

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages WHERE owner_id = $1", owner); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM groups WHERE owner_id = $1", owner); err != nil {
		return fmt.Errorf("failed to delete groups: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM contacts WHERE owner_id = $1", owner); err != nil {
		return fmt.Errorf("failed to delete contacts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	printSuccess("✓ Seed data cleared\n")
	return nil
}

// seedGroups generates and inserts group data
func seedGroups(db *sql.DB, owner string, count int) (int, error) {
	printInfo(fmt.Sprintf("Seeding %d groups...", count))

	groups := []struct {
		name        string
		description string
		useSMS      bool
		useEmail    bool
		useGroupMe  bool
	}{
		{"Book Club", "Monthly book discussions", true, true, false},
		{"Soccer Team", "Sunday league squad", true, false, true},
		{"Family", "The whole clan", true, true, false},
		{"Neighborhood Watch", "Street updates and alerts", true, false, false},
		{"Choir", "Rehearsal reminders", false, true, false},
	}

	created := 0
	for i := 0; i < count && i < len(groups); i++ {
		g := groups[i]

		query := `
			INSERT INTO groups (owner_id, name, description, use_sms, use_email, use_groupme)
			SELECT $1, $2, $3, $4, $5, $6
			WHERE NOT EXISTS (SELECT 1 FROM groups WHERE owner_id = $1 AND name = $2)
		`

		result, err := db.Exec(query, owner, g.name, g.description, g.useSMS, g.useEmail, g.useGroupMe)
		if err != nil {
			return created, fmt.Errorf("failed to insert group %s: %w", g.name, err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected > 0 {
			created++
		}
	}

	printSuccess(fmt.Sprintf("✓ Seeded %d groups", created))
	return created, nil
}

// seedContacts generates and inserts contact data
func seedContacts(db *sql.DB, owner string, count int) (int, error) {
	printInfo(fmt.Sprintf("Seeding %d contacts...", count))

	firstNames := []string{"Michael", "Sophia", "James", "Olivia", "Daniel", "Emma", "Benjamin", "Ava", "Lucas", "Mia", "Noah", "Isabella", "William", "Charlotte", "Alexander"}
	lastNames := []string{"Kamau", "Wanjiku", "Ochieng", "Atieno", "Mwangi", "Akinyi", "Kipchoge", "Chebet", "Kiptoo", "Jepchirchir", "Mutua", "Mumbua", "Omondi", "Adhiambo", "Nzomo"}

	created := 0
	for i := 1; i <= count; i++ {
		name := fmt.Sprintf("%s %s", firstNames[i%len(firstNames)], lastNames[i%len(lastNames)])

		// Vary reachability: some contacts are phone-only, some email-only
		var phone, email *string
		if i%5 != 0 { // 80% have a phone
			phone = stringPtr(fmt.Sprintf("+254700200%03d", i))
		}
		if i%3 != 0 { // 66% have an email
			email = stringPtr(fmt.Sprintf("contact%03d@example.com", i))
		}

		query := `
			INSERT INTO contacts (owner_id, name, phone, email)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (owner_id, phone) DO NOTHING
		`

		result, err := db.Exec(query, owner, name, phone, email)
		if err != nil {
			return created, fmt.Errorf("failed to insert contact %s: %w", name, err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected > 0 {
			created++
		}
	}

	printSuccess(fmt.Sprintf("✓ Seeded %d contacts (skipped %d existing)", created, count-created))
	return created, nil
}

// seedMembers spreads the owner's contacts across the owner's groups
func seedMembers(db *sql.DB, owner string) (int, error) {
	printInfo("Filling group rosters...")

	// Every contact joins the first group, every other contact joins the rest
	query := `
		INSERT INTO members (group_id, contact_id, is_recipient, created_by, updated_by)
		SELECT g.id, c.id, TRUE, $1, $1
		FROM groups g
		JOIN contacts c ON c.owner_id = g.owner_id
		WHERE g.owner_id = $1
		  AND (g.id = (SELECT MIN(id) FROM groups WHERE owner_id = $1) OR c.id % 2 = 0)
		ON CONFLICT (group_id, contact_id) DO NOTHING
	`

	result, err := db.Exec(query, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to insert members: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	printSuccess(fmt.Sprintf("✓ Seeded %d memberships", rowsAffected))
	return int(rowsAffected), nil
}

// stringPtr returns a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// printSuccess prints a success message in green
func printSuccess(msg string) {
	fmt.Printf("%s%s%s\n", colorGreen, msg, colorReset)
}

// printError prints an error message in red
func printError(msg string) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorRed, msg, colorReset)
}

// printInfo prints an info message in cyan
func printInfo(msg string) {
	fmt.Printf("%s%s%s\n", colorCyan, msg, colorReset)
}

// printWarning prints a warning message in yellow
func printWarning(msg string) {
	fmt.Printf("%s%s%s\n", colorYellow, msg, colorReset)
}

// printUsage displays usage information
func printUsage() {
	printInfo("=== Groupcast Database Seeder ===\n")
	fmt.Println("Usage: go run ./scripts/seed [flags]")
	fmt.Println("\nFlags:")
	flag.PrintDefaults()
	fmt.Println("\nExamples:")
	fmt.Println("  go run ./scripts/seed")
	fmt.Println("  go run ./scripts/seed -groups=5 -contacts=30")
	fmt.Println("  go run ./scripts/seed -clear")
	fmt.Println("  go run ./scripts/seed -owner=alice -contacts=50")
	fmt.Println("\nNotes:")
	fmt.Println("  - The script is idempotent - running multiple times won't create duplicates")
	fmt.Println("  - Use -clear to remove the owner's data before inserting fresh rows")
	fmt.Println("  - Pair with the API via the X-User-ID header set to the owner ID")
}
