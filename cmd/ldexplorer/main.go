// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import ldblock "github.com/arvados/ldexplorer"

func main() {
	ldblock.Main()
}
