package repo

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"otec/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrBadResetToken = errors.New("invalid or expired reset token")
)

type UserStore struct {
	db   *gorm.DB
	cost int // bcrypt cost
}

func NewUserStore(db *gorm.DB, bcryptCost int) *UserStore {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserStore{db: db, cost: bcryptCost}
}

// UpdateInput — частичное обновление пользователя. nil-поле не трогаем.
type UpdateInput struct {
	Email     *string
	Password  *string // plaintext; хешируется здесь, в БД не попадает
	FirstName *string
	LastName  *string
	IsActive  *bool
}

func (s *UserStore) hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Preload("Roles").Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Preload("Roles").Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Preload("Roles").Order("email").Find(&users).Error
	return users, err
}

// Create хеширует пароль и создаёт пользователя с ролью roleName.
// Если роль не нашлась — пробуем дефолтную "user" (она есть после сидинга).
func (s *UserStore) Create(ctx context.Context, u *models.User, plainPassword, roleName string) error {
	hash, err := s.hash(plainPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash

	tx := s.db.WithContext(ctx)
	var role models.Role
	err = tx.Where("name = ?", roleName).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && roleName != models.RoleUser {
		err = tx.Where("name = ?", models.RoleUser).First(&role).Error
	}
	switch {
	case err == nil:
		u.Roles = []models.Role{role}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// роли ещё не засеяны; пользователь остаётся без грантов
	default:
		return err
	}
	return tx.Create(u).Error
}

// CreateWithRoles создаёт пользователя с явным списком ролей по id.
// Ни один id не резолвится — падаем на дефолтную роль, без ролей не оставляем.
func (s *UserStore) CreateWithRoles(ctx context.Context, u *models.User, plainPassword string, roleIDs []string) error {
	hash, err := s.hash(plainPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash

	tx := s.db.WithContext(ctx)
	var roles []models.Role
	if len(roleIDs) > 0 {
		if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
			return err
		}
	}
	if len(roles) == 0 {
		var def models.Role
		err := tx.Where("name = ?", models.RoleUser).First(&def).Error
		switch {
		case err == nil:
			roles = []models.Role{def}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// см. Create: сидер ещё не отработал
		default:
			return err
		}
	}
	u.Roles = roles
	return tx.Create(u).Error
}

func (s *UserStore) Update(ctx context.Context, id string, in UpdateInput) (*models.User, error) {
	updates := map[string]any{}
	if in.Email != nil {
		updates["email"] = *in.Email
	}
	if in.Password != nil {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}
	if in.FirstName != nil {
		updates["first_name"] = *in.FirstName
	}
	if in.LastName != nil {
		updates["last_name"] = *in.LastName
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.FindByID(ctx, id)
}

// UpdateRoles полностью заменяет набор ролей пользователя.
func (s *UserStore) UpdateRoles(ctx context.Context, userID string, roleIDs []string) (*models.User, error) {
	tx := s.db.WithContext(ctx)

	var u models.User
	if err := tx.Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var roles []models.Role
	if len(roleIDs) > 0 {
		if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
			return nil, err
		}
	}
	assoc := tx.Model(&u).Association("Roles")
	if len(roles) == 0 {
		if err := assoc.Clear(); err != nil {
			return nil, err
		}
	} else if err := assoc.Replace(roles); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, userID)
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken записывает reset-токен и его срок. Прежний токен,
// если был, перезаписывается — живым остаётся ровно один.
func (s *UserStore) SetResetToken(ctx context.Context, email, token string, expiry time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).
		Updates(map[string]any{
			"reset_token":        token,
			"reset_token_expiry": expiry,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByResetToken матчит только токен со сроком строго в будущем.
// Просроченный или отсутствующий — промах.
func (s *UserStore) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	var u models.User
	err := s.db.WithContext(ctx).
		Where("reset_token = ? AND reset_token_expiry > ?", token, time.Now().UTC()).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ResetPassword ставит новый пароль по живому reset-токену и гасит токен.
// UPDATE обусловлен тем, что токен всё ещё на месте: два конкурентных
// подтверждения не пройдут оба (compare-and-clear).
func (s *UserStore) ResetPassword(ctx context.Context, token, newPassword string) error {
	u, err := s.FindByResetToken(ctx, token)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrBadResetToken
	}
	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND reset_token = ?", u.ID, token).
		Updates(map[string]any{
			"password_hash":      hash,
			"reset_token":        nil,
			"reset_token_expiry": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBadResetToken
	}
	return nil
}
