package ledger

import "context"

// MockService is a test double for Service.
// All function fields must be set before the corresponding method is called.
type MockService struct {
	MintFn         func(ctx context.Context, to Address, amount Amount) error
	BurnFromFn     func(ctx context.Context, holder Address, amount Amount) error
	TransferFn     func(ctx context.Context, from, to Address, amount Amount) error
	TransferFromFn func(ctx context.Context, spender, holder, to Address, amount Amount) error
	ApproveFn      func(ctx context.Context, holder, spender Address, amount Amount) error
	BalanceOfFn    func(ctx context.Context, holder Address) (Amount, error)
	AllowanceFn    func(ctx context.Context, holder, spender Address) (Amount, error)
}

func (m *MockService) Mint(ctx context.Context, to Address, amount Amount) error {
	return m.MintFn(ctx, to, amount)
}
func (m *MockService) BurnFrom(ctx context.Context, holder Address, amount Amount) error {
	return m.BurnFromFn(ctx, holder, amount)
}
func (m *MockService) Transfer(ctx context.Context, from, to Address, amount Amount) error {
	return m.TransferFn(ctx, from, to, amount)
}
func (m *MockService) TransferFrom(ctx context.Context, spender, holder, to Address, amount Amount) error {
	return m.TransferFromFn(ctx, spender, holder, to, amount)
}
func (m *MockService) Approve(ctx context.Context, holder, spender Address, amount Amount) error {
	return m.ApproveFn(ctx, holder, spender, amount)
}
func (m *MockService) BalanceOf(ctx context.Context, holder Address) (Amount, error) {
	return m.BalanceOfFn(ctx, holder)
}
func (m *MockService) Allowance(ctx context.Context, holder, spender Address) (Amount, error) {
	return m.AllowanceFn(ctx, holder, spender)
}
