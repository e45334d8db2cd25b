package credential

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type shopeeIdentity struct {
	PartnerID  string `validate:"required,numeric"`
	PartnerKey string `validate:"required"`
	ShopID     string `validate:"required,numeric"`
}

type lazadaIdentity struct {
	AppKey    string `validate:"required"`
	AppSecret string `validate:"required"`
}

type tiktokIdentity struct {
	AppKey     string `validate:"required"`
	AppSecret  string `validate:"required"`
	ShopCipher string `validate:"required"`
}

// ValidateIdentity reports every identity field the platform's signer needs
// but the credential lacks. It runs before any request is signed.
func ValidateIdentity(p Platform, id Identity) error {
	var target any
	switch p {
	case Shopee:
		target = shopeeIdentity{PartnerID: id.PartnerID, PartnerKey: id.PartnerKey, ShopID: id.ShopID}
	case Lazada:
		target = lazadaIdentity{AppKey: id.AppKey, AppSecret: id.AppSecret}
	case TikTok:
		target = tiktokIdentity{AppKey: id.AppKey, AppSecret: id.AppSecret, ShopCipher: id.ShopCipher}
	default:
		return fmt.Errorf("unknown platform %q", p)
	}

	err := validate.Struct(target)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating %s identity: %w", p, err)
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: %s failed %q", p, fe.Field(), fe.Tag()))
	}
	return errors.Join(errs...)
}
