package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"rollcall/internal/apperr"
	"rollcall/internal/config"
	"rollcall/internal/identity"
	"rollcall/internal/store"
)

// Bootstraps the first teacher account. Every later teacher is created
// through the API by an existing teacher; this CLI exists only because
// that chain has to start somewhere.
func main() {
	var (
		name     = flag.String("name", "", "teacher full name")
		email    = flag.String("email", "", "teacher email")
		password = flag.String("password", "", "teacher password (or set ADMIN_PASSWORD)")
	)
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("ADMIN_PASSWORD")
	}
	if *name == "" || *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: admin -name <full name> -email <email> -password <password>")
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	if err := store.Migrate(ctx, db.Client); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	svc := identity.NewService(identity.NewPostgresRepository(db.Client), cfg.BcryptCost)
	t, err := svc.CreateTeacher(ctx, *name, *email, *password)
	if err != nil {
		if apperr.Is(err, apperr.Conflict) {
			fmt.Printf("teacher already exists with email %s\n", *email)
			os.Exit(0)
		}
		log.Fatalf("create teacher failed: %v", err)
	}

	fmt.Printf("teacher created: id=%d email=%s\n", t.ID, t.Email)
}
