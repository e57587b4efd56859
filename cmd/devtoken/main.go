package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/civicdesk/grievance/internal/auth"
)

func main() {
	var (
		subject    = flag.String("sub", "", "Subject uuid (random when empty)")
		role       = flag.String("role", auth.RoleCitizen, "citizen or department-staff")
		department = flag.String("department", "", "Department claim for staff")
		ttl        = flag.Duration("ttl", time.Hour, "Token lifetime")
	)
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if len(secret) < 32 {
		fmt.Fprintln(os.Stderr, "JWT_SECRET must be set and at least 32 characters")
		os.Exit(1)
	}

	if *role != auth.RoleCitizen && *role != auth.RoleStaff {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(1)
	}

	id := uuid.New()
	if *subject != "" {
		parsed, err := uuid.Parse(*subject)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -sub: %v\n", err)
			os.Exit(1)
		}
		id = parsed
	}

	token, err := auth.NewJWTManager(secret, *ttl).GenerateAccessToken(id, *role, *department)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
