// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/cazipcode/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
