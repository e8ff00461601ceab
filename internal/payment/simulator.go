// Package payment は外部決済ゲートウェイの代わりに承認結果を決める。
package payment

import (
	"fmt"
	"math/rand"
	"time"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

const DeclinedReason = "Payment declined by provider"

type Simulator struct {
	successRate float64
	rnd         func() float64
	now         func() time.Time
}

func NewSimulator(successRate float64) *Simulator {
	return &Simulator{
		successRate: successRate,
		rnd:         rand.Float64,
		now:         time.Now,
	}
}

// テスト用に乱数を差し替える
func (s *Simulator) WithRand(rnd func() float64) *Simulator {
	s.rnd = rnd
	return s
}

func (s *Simulator) WithClock(now func() time.Time) *Simulator {
	s.now = now
	return s
}

// pendingの決済を承認するか決める。
// 承認ならtransaction id（決済IDと処理時刻から作るので決済ごとに一意）を振る
func (s *Simulator) Authorize(p model.Payment) repo.PaymentResolution {
	if s.rnd() < s.successRate {
		txn := fmt.Sprintf("txn_%d_%d", p.ID, s.now().Unix())
		return repo.PaymentResolution{
			Status:        model.PaymentStatusCompleted,
			TransactionID: &txn,
		}
	}

	reason := DeclinedReason
	return repo.PaymentResolution{
		Status:        model.PaymentStatusFailed,
		FailureReason: &reason,
	}
}
