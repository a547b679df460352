package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"ferro.is/voxic/internal/api"
	"ferro.is/voxic/internal/brand"
)

// RunAPIKeyGenerate mints a fresh key and prints the config block for
// it. The plaintext is shown exactly once and never stored.
func RunAPIKeyGenerate(name string) error {
	if name == "" {
		return fmt.Errorf("usage: %s apikey <name>", brand.BinaryName)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	key := brand.LowerName + "_" + hex.EncodeToString(raw)

	Printer.Printf("API key for %q (store it now, it will not be shown again):\n\n", name)
	Printer.Printf("  %s\n\n", key)
	Printer.Printf("Add to %s:\n\n", brand.DefaultConfigPath())
	Printer.Printf("api_key %q {\n  hash = %q\n}\n", name, api.HashKey(key))
	return nil
}
