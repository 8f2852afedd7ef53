package main

import (
	"fmt"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// hash-code generates the bcrypt hash for ACCESS_CODE_HASH. The proctor
// access code never lives in config in the clear.
func main() {
	fmt.Println("=== Generate Access Code Hash ===")

	fmt.Print("Enter Access Code: ")
	byteCode, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading access code")
		return
	}
	fmt.Println()

	code := string(byteCode)
	if len(code) < 4 {
		fmt.Println("Error: Access code must be at least 4 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		return
	}

	fmt.Println("Set this in your environment:")
	fmt.Printf("ACCESS_CODE_HASH=%s\n", string(hash))
}
