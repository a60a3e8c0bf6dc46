// Package field abstracts the finite field the circuit's arithmetic runs in.
// Elements are stored as gnark constraint.Element limbs; the engine performs
// the modular arithmetic.
package field

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/constraint"

	"github.com/fcmc-zk/fcmc/field/bn254"
)

type Field interface {
	constraint.Field
	Field() *big.Int
	FieldBitLen() int
}

// GetFieldFromOrder returns the engine for a known scalar field order.
func GetFieldFromOrder(x *big.Int) Field {
	if x.Cmp(bn254.ScalarField) == 0 {
		return &bn254.Field{}
	}
	panic(fmt.Sprintf("unknown field %v", x))
}

// BN254 returns the default engine; the compiler targets the BN254 scalar
// field unless a caller asks otherwise.
func BN254() Field {
	return &bn254.Field{}
}
