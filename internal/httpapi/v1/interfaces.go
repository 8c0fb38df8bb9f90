package v1

import (
	"context"

	"github.com/tinoosan/schoolfin/internal/service/balance"
	"github.com/tinoosan/schoolfin/internal/service/contract"
	"github.com/tinoosan/schoolfin/internal/service/obligation"
	"github.com/tinoosan/schoolfin/internal/service/registry"
	"github.com/tinoosan/schoolfin/internal/service/settlement"
)

// ReadyChecker is implemented by stores to report readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Store is the union of the repositories the services are built on.
// Both the memory and the postgres store satisfy it.
type Store interface {
	registry.Repo
	registry.Writer
	balance.Repo
	obligation.Repo
	obligation.Writer
	settlement.Repo
	contract.Repo
	ReadyChecker
}
