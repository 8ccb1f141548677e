// internal/enrich/errors.go
package enrich

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrEnrichment matches every enrichment failure via errors.Is.
var ErrEnrichment = errors.New("candidate enrichment failed")

// EnrichmentError reports which read failed for which holder.
type EnrichmentError struct {
	Holder common.Address
	Call   string
	Err    error
}

// Error реализует интерфейс error
func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrich %s [%s]: %v", e.Holder.Hex(), e.Call, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrEnrichment) hold for any EnrichmentError.
func (e *EnrichmentError) Is(target error) bool {
	return target == ErrEnrichment
}
