package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// bcryptハッシュ化
type BcryptPasswordHasher struct {
	cost int
}

// DI
func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost: cost}
}

func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// bcryptハッシュと平文を比較
type BcryptPasswordVerifier struct {
	// メールが存在しない時にも同じだけ時間をかけるためのダミー
	dummy []byte
}

func NewBcryptPasswordVerifier() *BcryptPasswordVerifier {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return &BcryptPasswordVerifier{dummy: dummy}
}

func (v *BcryptPasswordVerifier) Verify(plain string, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// 照合対象のユーザーがいない時に呼ぶ。結果は常にfalse
func (v *BcryptPasswordVerifier) VerifyNothing(plain string) bool {
	_ = bcrypt.CompareHashAndPassword(v.dummy, []byte(plain))
	return false
}
