// SPDX-License-Identifier: GPL-3.0-or-later

package credential

import (
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/instance"
)

// Decrypter turns an encrypted credential back into plaintext.
type Decrypter interface {
	Decrypt(cipherText, key string) (string, error)
}

type Resolver struct {
	Decrypter Decrypter
}

func NewResolver(d Decrypter) *Resolver {
	return &Resolver{Decrypter: d}
}

// Resolve returns the usable plaintext credential.
// A non-empty plain always wins over cipher. An empty result means no credential override.
// Every failure is an *instance.ConfigError.
func (r *Resolver) Resolve(plain, cipher, key string) (string, error) {
	switch {
	case plain != "":
		return plain, nil
	case cipher == "":
		return "", nil
	case key == "":
		return "", &instance.ConfigError{Err: instance.ErrMissingEncryptionKey}
	case r == nil || r.Decrypter == nil:
		return "", &instance.ConfigError{Err: errNoDecrypter}
	}

	v, err := r.Decrypter.Decrypt(cipher, key)
	if err != nil {
		return "", &instance.ConfigError{Err: err}
	}
	return v, nil
}
