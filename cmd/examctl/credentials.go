package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-adaptive/internal/service"
	"golang.org/x/term"
)

const minPasswordLength = 6

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for PROCTOR_PASSWORD_HASH",
		Long:  "Reads the password from the terminal without echo, or from stdin when it is not a terminal.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := setup()
			password, err := readPassword()
			if err != nil {
				return err
			}
			if len(password) < minPasswordLength {
				return fmt.Errorf("password must be at least %d characters", minPasswordLength)
			}
			hash, err := service.NewAuthService(cfg).HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Println(hash)
			return nil
		},
	}
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Enter Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Confirm Password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func issueTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign a student or proctor JWT with JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := setup()
			f := cmd.Flags()
			typ, _ := f.GetString("type")
			subject, _ := f.GetString("subject")
			ttl, _ := f.GetDuration("ttl")

			tokenType := service.TokenType(typ)
			if tokenType != service.TokenTypeStudent && tokenType != service.TokenTypeProctor {
				return fmt.Errorf("unknown token type %q: want student or proctor", typ)
			}
			if ttl > 0 {
				cfg.JWTExpiry = ttl
			}

			token, err := service.NewAuthService(cfg).GenerateToken(tokenType, subject)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("type", string(service.TokenTypeStudent), "Token type: student or proctor")
	f.String("subject", "", "Student ID or proctor username (required)")
	f.Duration("ttl", 0, "Token lifetime (default JWT_EXPIRY_HOURS)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
