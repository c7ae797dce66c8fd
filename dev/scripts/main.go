package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/collabhub/collabhub-server/utils-go"
)

// Generates a throwaway RSA keypair, prints the JWT_PUBLIC_KEY env value and
// a matching 24h access token for local curl sessions.
func main() {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}

	publicPem := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: func() []byte {
			der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
			if err != nil {
				panic(err)
			}
			return der
		}(),
	})

	token, err := utils.CreateJwt(utils.JwtConfig{
		User:       "1",
		ExpireIn:   time.Hour * 24,
		Scope:      "basic",
		Subject:    "access",
		Data:       map[string]string{},
		PrivateKey: key,
	})
	if err != nil {
		panic(err)
	}

	fmt.Println("JWT_PUBLIC_KEY=" + base64.URLEncoding.EncodeToString(publicPem))
	fmt.Println("token: " + token)
}
