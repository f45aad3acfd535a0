package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"armory-backend/internal/application/assets"
	"armory-backend/internal/application/audit"
	"armory-backend/internal/constants"
	"armory-backend/internal/domain"
	"armory-backend/internal/ledger"
	"armory-backend/internal/pkg/validation"

	"github.com/google/subcommands"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type seedCmd struct {
	env      *Env
	email    string
	password string
	userName string
	fullname string
	bases    string
	opening  int64
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "create the first admin and optional starting stock" }
func (*seedCmd) Usage() string {
	return `seed -email <email> -password <password> [-bases "Fort A,Fort B" -opening 100]

  Creates an admin account when none with that email exists. With -bases,
  registers one asset of every type at each base with the given opening
  balance. Existing assets are left untouched.
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Admin email (required)")
	f.StringVar(&c.password, "password", "", "Admin password (required)")
	f.StringVar(&c.userName, "username", "admin", "Admin user name")
	f.StringVar(&c.fullname, "fullname", "System Administrator", "Admin full name")
	f.StringVar(&c.bases, "bases", "", "Comma separated bases to stock")
	f.Int64Var(&c.opening, "opening", 0, "Opening balance for each seeded asset")
}

func (c *seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" || c.password == "" {
		return fail("-email and -password are required")
	}
	if !validation.IsValidPassword(c.password) {
		return fail("password needs 8+ characters with a letter, a digit and a symbol")
	}
	db, err := c.env.Open(ctx)
	if err != nil {
		return fail("connecting: %v", err)
	}

	created, err := seedAdmin(ctx, db, c.email, c.password, c.userName, c.fullname)
	if err != nil {
		return fail("seeding admin: %v", err)
	}
	if created {
		fmt.Fprintf(c.env.Out, "created admin %s\n", c.email)
	} else {
		fmt.Fprintf(c.env.Out, "admin %s already exists\n", c.email)
	}

	if c.bases == "" {
		return subcommands.ExitSuccess
	}
	svc := &assets.Service{DB: db, Audit: audit.Nop{}}
	for _, base := range strings.Split(c.bases, ",") {
		base = validation.NormalizeLabel(base)
		if base == "" {
			continue
		}
		for _, t := range domain.AssetTypes {
			_, err := svc.Create(ctx, operator, assets.CreateInput{
				Name:           "Standard " + t,
				Type:           t,
				Base:           base,
				OpeningBalance: c.opening,
			})
			switch {
			case errors.Is(err, ledger.ErrDuplicate):
				fmt.Fprintf(c.env.Out, "skip %s/%s (exists)\n", base, t)
			case err != nil:
				return fail("seeding %s/%s: %v", base, t, err)
			default:
				fmt.Fprintf(c.env.Out, "stocked %s/%s with %d\n", base, t, c.opening)
			}
		}
	}
	return subcommands.ExitSuccess
}

func seedAdmin(ctx context.Context, db *gorm.DB, email, password, userName, fullname string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var existing domain.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	u := &domain.User{
		UserName:     userName,
		Email:        email,
		PasswordHash: string(hash),
		Fullname:     fullname,
		Role:         constants.Admin,
	}
	return true, db.WithContext(ctx).Create(u).Error
}
