/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package main

import "github.com/caltechads/deployfish/cmd"

func main() {
	cmd.Execute()
}
