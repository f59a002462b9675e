// Command authctl is the operator tool for password digests and account
// provisioning.
//
//	authctl hash
//	authctl create-user -email a@b.com [-username alice] [-config configs/config.yml]
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

	"devsecops_api/internal/auth"
	"devsecops_api/internal/config"
	"devsecops_api/internal/logger"
	"devsecops_api/internal/repository"
	"devsecops_api/internal/repository/db"
	"devsecops_api/internal/service"

	"golang.org/x/term"
)

// readPassword prompts on stderr and reads without echo when stdin is a
// terminal; piped input is read one line at a time.
var readPassword = func(prompt string, stderr io.Writer) (string, error) {
	fmt.Fprint(stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(stderr)
		return string(b), err
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "hash":
		err = runHash(args[1:], stdout, stderr)
	case "create-user":
		err = runCreateUser(ctx, args[1:], stdout, stderr)
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "authctl %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: authctl <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  hash          read a password and print its digest")
	fmt.Fprintln(w, "  create-user   register an account")
}

func runHash(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(stderr)
	algorithm := fs.String("algorithm", auth.AlgorithmPBKDF2, "pbkdf2 or bcrypt")
	iterations := fs.Int("iterations", auth.DefaultPBKDF2Iterations, "pbkdf2 iterations")
	cost := fs.Int("cost", 12, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	hasher, err := auth.NewPasswordHasher(auth.HasherConfig{
		Algorithm:        *algorithm,
		PBKDF2Iterations: *iterations,
		BcryptCost:       *cost,
	})
	if err != nil {
		return err
	}

	password, err := readPassword("Password: ", stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if password == "" {
		return errors.New("password is empty")
	}

	digest, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, digest)
	return nil
}

func runCreateUser(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (default configs/config.yml)")
	email := fs.String("email", "", "account email (required)")
	username := fs.String("username", "", "display name (defaults to the email local part)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log := logger.Get(cfg.Log.Level, cfg.Log.Format)

	conn, dialect, err := db.InitDB(ctx, db.Config{
		Driver:       cfg.DB.Driver,
		DSN:          cfg.DB.DSN,
		MaxOpenConns: cfg.DB.MaxOpenConns,
	}, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	hasher, err := auth.NewPasswordHasher(auth.HasherConfig{
		Algorithm:        cfg.Password.Algorithm,
		PBKDF2Iterations: cfg.Password.PBKDF2Iterations,
		BcryptCost:       cfg.Password.BcryptCost,
	})
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL,
	})
	if err != nil {
		return err
	}
	services := service.NewService(repository.NewRepository(conn, dialect), hasher, tokens)

	password, err := readPassword("Password: ", stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	id, err := services.Register(ctx, service.RegisterInput{
		Email:    *email,
		Password: password,
		Username: *username,
	})
	if err != nil {
		return err
	}
	log.Infow("user_created", "user_id", id, "source", "authctl")
	fmt.Fprintf(stdout, "created user %d\n", id)
	return nil
}
