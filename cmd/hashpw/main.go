// Command hashpw prints a bcrypt hash for ADMIN_PASSWORD_HASH.
//
//	go run ./cmd/hashpw 'correct horse battery staple'
//	echo -n 'correct horse battery staple' | go run ./cmd/hashpw
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var cost = flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")

func main() {
	flag.Parse()

	password := strings.Join(flag.Args(), " ")
	if password == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatal("no password given")
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), *cost)
	if err != nil {
		log.Fatalf("hashing password: %v", err)
	}
	fmt.Println(string(hash))
}
