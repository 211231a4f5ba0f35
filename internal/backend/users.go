package backend

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type User struct {
	ID           string
	Email        string
	Name         string
	Role         string
	passwordHash []byte
}

// SeedUser is a user with a plaintext password, hashed on load.
type SeedUser struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// Users is an in-memory user table keyed by lowercased email.
type Users struct {
	mu      sync.RWMutex
	byEmail map[string]User
	cost    int
}

func NewUsers(cost int) *Users {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Users{byEmail: map[string]User{}, cost: cost}
}

func (u *Users) Add(s SeedUser) (User, error) {
	email := strings.ToLower(strings.TrimSpace(s.Email))
	if email == "" || s.Password == "" || s.Role == "" {
		return User{}, errors.New("email, password and role are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), u.cost)
	if err != nil {
		return User{}, err
	}
	usr := User{ID: uuid.NewString(), Email: email, Name: s.Name, Role: s.Role, passwordHash: hash}

	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byEmail[email]; ok {
		return User{}, errors.New("user already exists: " + email)
	}
	u.byEmail[email] = usr
	return usr, nil
}

// Authenticate returns the user when password matches. Unknown emails and bad
// passwords fail the same way.
func (u *Users) Authenticate(email, password string) (User, error) {
	u.mu.RLock()
	usr, ok := u.byEmail[strings.ToLower(strings.TrimSpace(email))]
	u.mu.RUnlock()
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(usr.passwordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("invoice-console"), bcrypt.MinCost)
