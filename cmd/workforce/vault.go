package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mtzanidakis/workforce/internal/config"
	"github.com/mtzanidakis/workforce/internal/store"
	"github.com/mtzanidakis/workforce/internal/vault"
)

func runVault(args []string) error {
	if len(args) == 0 {
		printVaultUsage()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Vault.Passphrase == "" {
		return fmt.Errorf("WORKFORCE_VAULT_PASSPHRASE environment variable is required")
	}

	v, err := vault.New(cfg.Vault.Passphrase)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	secrets := vault.NewSecrets(v, db)

	switch args[0] {
	case "list":
		return vaultList(secrets)
	case "set":
		return vaultSet(secrets, args[1:])
	case "get":
		return vaultGet(secrets, args[1:])
	case "delete":
		return vaultDelete(secrets, args[1:])
	default:
		printVaultUsage()
		return fmt.Errorf("unknown vault command: %s", args[0])
	}
}

func printVaultUsage() {
	fmt.Fprintf(os.Stderr, `Usage: workforce vault <command>

Commands:
  list                                              List all secrets (metadata only)
  set <name> --value <str> [--description <text>]   Store a string secret
  set <name> --file <path> [--description <text>]   Store a file's contents
  get <name>                                        Retrieve and decrypt a secret
  delete <name>                                     Delete a secret

Reference a secret from the config file as "secret:<name>".

Environment:
  WORKFORCE_VAULT_PASSPHRASE                        Required. Encryption passphrase.
`)
}

func vaultList(secrets *vault.Secrets) error {
	list, err := secrets.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No secrets stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tUPDATED\tDESCRIPTION")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.UpdatedAt.Format("2006-01-02 15:04"), s.Description)
	}
	return w.Flush()
}

// parseSetArgs reads "<name> --value <str>|--file <path> [--description <text>]".
func parseSetArgs(args []string) (name string, value []byte, description string, err error) {
	if len(args) < 3 {
		return "", nil, "", fmt.Errorf("usage: workforce vault set <name> --value <string> | --file <path> [--description <text>]")
	}

	name = args[0]
	switch args[1] {
	case "--value":
		value = []byte(args[2])
	case "--file":
		value, err = os.ReadFile(args[2])
		if err != nil {
			return "", nil, "", fmt.Errorf("read file: %w", err)
		}
	default:
		return "", nil, "", fmt.Errorf("expected --value or --file, got %s", args[1])
	}

	for i := 3; i < len(args)-1; i++ {
		if args[i] == "--description" {
			description = args[i+1]
			break
		}
	}
	return name, value, description, nil
}

func vaultSet(secrets *vault.Secrets, args []string) error {
	name, value, description, err := parseSetArgs(args)
	if err != nil {
		return err
	}
	if err := secrets.Set(name, description, value); err != nil {
		return err
	}
	fmt.Printf("Secret %q saved\n", name)
	return nil
}

func vaultGet(secrets *vault.Secrets, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: workforce vault get <name>")
	}

	plaintext, err := secrets.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Print(string(plaintext))
	if len(plaintext) > 0 && plaintext[len(plaintext)-1] != '\n' {
		fmt.Println()
	}
	return nil
}

func vaultDelete(secrets *vault.Secrets, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: workforce vault delete <name>")
	}
	if err := secrets.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Secret %q deleted\n", args[0])
	return nil
}
