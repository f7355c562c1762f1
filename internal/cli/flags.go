package cli

import (
	"github.com/spf13/pflag"

	"tekshila/internal/model"
)

// purposeValue is a pflag.Value accepting "readme" or "comments".
type purposeValue model.Purpose

var _ pflag.Value = (*purposeValue)(nil)

func (p *purposeValue) String() string { return model.Purpose(*p).String() }

func (p *purposeValue) Set(s string) error {
	v, err := model.ParsePurpose(s)
	if err != nil {
		return err
	}
	*p = purposeValue(v)
	return nil
}

func (p *purposeValue) Type() string { return "purpose" }

// addPurposeFlag registers --purpose on fs.
func addPurposeFlag(fs *pflag.FlagSet, p *purposeValue) {
	fs.VarP(p, "purpose", "p", `what to generate: "readme" or "comments"`)
}
