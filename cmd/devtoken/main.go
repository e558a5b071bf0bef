// Command devtoken signs access tokens for local runs. Production tokens come
// from the platform's auth service; both share the jwt.secret setting.
//
//	devtoken --id 42 --role DESIGNER
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/infrastructure/config"
	"github.com/xiebiao/pubflow/pkg/jwt"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "devtoken: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		userID uint
		role   string
		email  string
		secret string
		ttl    time.Duration
	)

	flagSet := pflag.NewFlagSet("devtoken", pflag.ContinueOnError)
	flagSet.UintVar(&userID, "id", 0, "actor id (required)")
	flagSet.StringVar(&role, "role", "", "actor role: AUTHOR, REVIEWER, DESIGNER, EDITOR, PUBLISHER, ADMIN or READER")
	flagSet.StringVar(&email, "email", "", "optional email claim")
	flagSet.StringVar(&secret, "secret", "", "signing secret (default: jwt.secret from the config)")
	flagSet.DurationVar(&ttl, "ttl", 0, "token lifetime (default: jwt.access_token_expire)")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if userID == 0 {
		return fmt.Errorf("--id is required")
	}
	r, ok := identity.ParseRole(role)
	if !ok {
		return fmt.Errorf("unknown role %q", role)
	}

	if secret == "" || ttl == 0 {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if secret == "" {
			secret = cfg.JWT.Secret
		}
		if ttl == 0 {
			ttl = cfg.JWT.AccessTokenExpire
		}
	}

	token, err := jwt.NewManager(secret, ttl).GenerateToken(userID, string(r), email)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
