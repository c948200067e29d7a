// Command tokengen mints a viewer access token signed with JWT_SECRET.
//
//	tokengen -user 7 -role MANAGER -ttl 120
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/conference-timetable/internal/utils"
)

func main() {
	userID := flag.Uint64("user", 0, "user id placed in the sub claim")
	role := flag.String("role", utils.RoleViewer, "VIEWER, MANAGER or ADMIN")
	ttl := flag.Int("ttl", 60, "lifetime in minutes")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("load .env: %v", err)
	}
	secret := os.Getenv("JWT_SECRET")
	r := strings.ToUpper(strings.TrimSpace(*role))
	switch r {
	case utils.RoleViewer, utils.RoleManager, utils.RoleAdmin:
	default:
		log.Fatalf("unknown role %q", *role)
	}
	if *userID == 0 {
		log.Fatal("-user is required")
	}

	tok, err := utils.NewAccessToken(secret, *userID, r, *ttl)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
