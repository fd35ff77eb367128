// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package random

import (
	"bytes"
	"encoding/base32"
	"strings"

	"github.com/pborman/uuid"
)

const (
	charset  = "ybndrfg8ejkmcpqxot1uwisza345h769"
	idLength = 26
)

var encoding = base32.NewEncoding(charset)

// NewID returns a random version 4 UUID, zbase32 encoded with the padding
// stripped off. It's always 26 characters long.
func NewID() string {
	var b bytes.Buffer
	encoder := base32.NewEncoder(encoding, &b)
	if _, err := encoder.Write(uuid.NewRandom()); err != nil {
		return ""
	}
	encoder.Close()
	b.Truncate(idLength)
	return b.String()
}

// NewPrefixedID returns a new ID in the form prefix_id.
func NewPrefixedID(prefix string) string {
	return prefix + "_" + NewID()
}

// IsValidID returns whether id looks like the output of NewID.
func IsValidID(id string) bool {
	if len(id) != idLength {
		return false
	}
	for _, c := range id {
		if !strings.ContainsRune(charset, c) {
			return false
		}
	}
	return true
}
