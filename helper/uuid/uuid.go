// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package uuid

import (
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// Generate is used to generate a random UUID.
func Generate() string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		panic(fmt.Errorf("failed to generate uuid: %w", err))
	}
	return id
}

// Short is used to generate the first eight characters of a UUID.
func Short() string {
	return Generate()[0:8]
}
