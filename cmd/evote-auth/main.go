// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package main

import (
	"fmt"
	"os"

	"github.com/Zaid-Dildar/evote-auth/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
