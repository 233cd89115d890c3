// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/Aakash1702/TailorFlow-sub000/internal/cli"
)

func main() {
	cli.Execute()
}
