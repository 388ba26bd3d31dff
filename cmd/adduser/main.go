package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"trackify/internal/auth"
	"trackify/internal/backend"
	"trackify/internal/models"
	"trackify/internal/storage"
	"trackify/internal/storage/mongostore"

	"golang.org/x/term"
)

const defaultDBPath = "trackify.db"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	phone := fs.String("phone", "", "Phone number used to log in")
	name := fs.String("name", "", "Display name (optional)")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	dbPath := fs.String("db", defaultDBPath, "SQLite file path or database URL (sqlite://, mongodb://)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	*phone = strings.TrimSpace(*phone)
	if *phone == "" {
		fmt.Fprintln(stdout, "Usage: adduser -phone <phone> [-name <name>] [-password <password>] [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: phone")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return errors.New(auth.PolicyMessage(err))
	}

	db, err := openUserStore(ctx, resolveDatabase(*dbPath))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Name: strings.TrimSpace(*name), Phone: *phone, PasswordHash: hash}
	if err := db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return fmt.Errorf("user with phone %s already exists", *phone)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %s\n", user.Phone, user.ID)
	return nil
}

// resolveDatabase picks the store location. DATABASE_URL, the variable the
// server reads, and then DB_PATH apply only when -db was left at its default.
func resolveDatabase(flagValue string) string {
	if flagValue != defaultDBPath {
		return flagValue
	}
	for _, key := range []string{"DATABASE_URL", "DB_PATH"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return flagValue
}

type userStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	Close() error
}

func openUserStore(ctx context.Context, location string) (userStore, error) {
	typ, target, err := backend.ParseDatabaseURL(location)
	if err != nil {
		return nil, err
	}
	if typ == backend.MongoBackend {
		store, err := mongostore.Open(ctx, target)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	db, err := storage.NewDB(target)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Piped input: first line, without a trailing carriage return.
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return strings.TrimSuffix(scanner.Text(), "\r"), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
