package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// pqUniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const pqUniqueViolation = "23505"

// pqCheckViolation はCHECK制約違反のSQLSTATE。
const pqCheckViolation = "23514"

// translateWriteError は書き込み時のドライバエラーをリポジトリのエラーに変換する。
// 制約違反はErrConstraintでラップし、それ以外はそのままラップする。
func translateWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation, pqCheckViolation:
			return fmt.Errorf("%s: %w (%s)", op, ErrConstraint, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
