package ports

// Unlock releases a lock taken with Locker.TryLock.
type Unlock func() error

// Locker guards the project state against concurrent processes.
//
//go:generate go run go.uber.org/mock/mockgen -source=locker.go -destination=mocks/mock_locker.go -package=mocks
type Locker interface {
	// TryLock takes the advisory lock of the project in root without waiting.
	// It returns *domain.BusyError when another process holds it.
	TryLock(root string) (Unlock, error)
}
