package repository

import "context"

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Items         ItemRepository
	Locations     LocationRepository
	Movements     MovementRepository
	Balances      BalanceRepository
	Notifications NotificationRepository
}

// TxRunner ejecuta fn dentro de una transacción: si fn devuelve error no se aplica ninguna escritura.
// Los bloqueos tomados dentro de fn se liberan al terminar.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx TxRepos) error) error
}
