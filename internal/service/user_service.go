package service

import (
	"sort"
	"strings"
	"sync"

	"github.com/GoPolymarket/ginauditor/internal/model"
	"github.com/GoPolymarket/ginauditor/internal/pkg/apperrors"
)

// UserService is the in-memory user directory behind the example API.
type UserService struct {
	mu     sync.RWMutex
	users  map[int]*model.User
	nextID int
}

func NewUserService(seed ...model.User) *UserService {
	s := &UserService{users: make(map[int]*model.User), nextID: 1}
	for _, u := range seed {
		u := u
		s.users[u.ID] = &u
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
	}
	return s
}

func (s *UserService) List() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *UserService) Get(id int) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, apperrors.NewNotFound("user not found")
	}
	return *u, nil
}

func (s *UserService) Create(req model.CreateUserRequest) (model.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.User{}, apperrors.NewInvalidRequest("Please provide a name.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := &model.User{ID: s.nextID, Name: name}
	s.users[u.ID] = u
	s.nextID++
	return *u, nil
}
