/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package main

import "github.com/rsaustro/gpdpick/cmd"

func main() {
	cmd.Execute()
}
