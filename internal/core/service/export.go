package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/maspithik/angkringan/internal/core/domain"
)

const exportPageSize = 200

var exportHeader = []string{
	"id", "user_id", "status", "payment_status", "payment_method", "total_amount", "created_at",
}

// transactionEnv is what an export filter expression sees.
type transactionEnv struct {
	ID            string `expr:"id"`
	UserID        string `expr:"user_id"`
	Status        string `expr:"status"`
	PaymentStatus string `expr:"payment_status"`
	PaymentMethod string `expr:"payment_method"`
	TotalAmount   int64  `expr:"total_amount"`
	CreatedAt     string `expr:"created_at"`
}

func newTransactionEnv(o domain.Order) transactionEnv {
	return transactionEnv{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		PaymentMethod: o.PaymentMethod,
		TotalAmount:   o.TotalAmount,
		CreatedAt:     o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CompileExportFilter checks a filter expression such as
// `payment_status == "paid" && total_amount > 50000`.
func CompileExportFilter(filter string) (*vm.Program, error) {
	if filter == "" {
		return nil, nil
	}
	program, err := expr.Compile(filter, expr.Env(transactionEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return program, nil
}

// ExportTransactions writes every transaction matching filter as CSV. An
// empty filter exports everything.
func (s *AdminService) ExportTransactions(ctx context.Context, identity domain.Identity, filter string, w io.Writer) (int, error) {
	if err := requireAdmin(identity); err != nil {
		return 0, err
	}
	program, err := CompileExportFilter(filter)
	if err != nil {
		return 0, err
	}

	out := csv.NewWriter(w)
	if err := out.Write(exportHeader); err != nil {
		return 0, err
	}

	written := 0
	for offset := 0; ; offset += exportPageSize {
		orders, total, err := s.orders.ListOrders(ctx, offset, exportPageSize)
		if err != nil {
			return written, fmt.Errorf("list transactions: %w", err)
		}
		for _, o := range orders {
			env := newTransactionEnv(o)
			if program != nil {
				ok, err := expr.Run(program, env)
				if err != nil {
					return written, fmt.Errorf("evaluate export filter on %s: %w", o.ID, err)
				}
				if keep, _ := ok.(bool); !keep {
					continue
				}
			}
			record := []string{
				env.ID,
				env.UserID,
				env.Status,
				env.PaymentStatus,
				env.PaymentMethod,
				strconv.FormatInt(env.TotalAmount, 10),
				env.CreatedAt,
			}
			if err := out.Write(record); err != nil {
				return written, err
			}
			written++
		}
		if len(orders) == 0 || offset+len(orders) >= total {
			break
		}
	}

	out.Flush()
	return written, out.Error()
}
