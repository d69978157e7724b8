package forms

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"0772123456", "256772123456", false},
		{"772123456", "256772123456", false},
		{"256772123456", "256772123456", false},
		{"+256772123456", "256772123456", false},
		{"+256 772-123456", "256772123456", false},
		{"(0772) 123 456", "256772123456", false},
		{"00256772123456", "256772123456", false},
		{"  0701 234 567 ", "256701234567", false},
		{"", "", true},
		{"07721234", "", true},
		{"077212345678", "", true},
		{"254772123456", "", true},
		{"0772abc456", "", true},
		{"072+123456", "", true},
		{"00254772123456", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw, "256")
			if tt.wantErr {
				require.Error(t, err)
				code, _ := perrors.CodeOf(err)
				assert.Equal(t, perrors.ErrCodeInvalidPhone, code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhoneOtherCountry(t *testing.T) {
	got, err := NormalizePhone("0712345678", "254")
	require.NoError(t, err)
	assert.Equal(t, "254712345678", got)

	got, err = NormalizePhone("0712345678", "")
	require.NoError(t, err)
	assert.Equal(t, "256712345678", got, "empty country code falls back to the default")
}

func TestLocalPhone(t *testing.T) {
	assert.Equal(t, "0772123456", LocalPhone("256772123456", "256"))
	assert.Equal(t, "12345", LocalPhone("12345", "256"))
}

func TestValidIMEI(t *testing.T) {
	tests := []struct {
		imei string
		want bool
	}{
		{"356938035643809", true},
		{"490154203237518", true},
		{"356938035643808", false},
		{"35693803564380", false},
		{"3569380356438090", false},
		{"35693803564380a", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.imei, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidIMEI(tt.imei))
		})
	}
}

func TestScanIMEIs(t *testing.T) {
	file := strings.Join([]string{
		"imei,model",
		"356938035643809,Tecno Spark",
		"",
		"490154203237518,Itel A70",
		"356938035643808,bad check digit",
		"356938035643809,duplicate",
	}, "\n")

	scan, err := ScanIMEIs(strings.NewReader(file))
	require.NoError(t, err)

	assert.Equal(t, []string{"356938035643809", "490154203237518"}, scan.Valid)
	require.Len(t, scan.Invalid, 1)
	assert.Equal(t, "356938035643808", scan.Invalid[0].Value)
	assert.Equal(t, []string{"356938035643809"}, scan.Duplicates)
	assert.False(t, scan.OK())
}

func TestScanIMEIsPlainList(t *testing.T) {
	scan, err := ScanIMEIs(strings.NewReader("356938035643809\n490154203237518\n"))
	require.NoError(t, err)
	assert.Len(t, scan.Valid, 2)
	assert.True(t, scan.OK())
}

func TestValidNIN(t *testing.T) {
	assert.True(t, ValidNIN("CM12345678ABCD"))
	assert.False(t, ValidNIN("1M12345678ABCD"))
	assert.False(t, ValidNIN("CM123"))
	assert.False(t, ValidNIN("CM12345678AB-D"))
}

func TestValidateDealerForm(t *testing.T) {
	valid := DealerForm{
		Name:          "Kampala Mobile Ltd",
		ContactPerson: "Jane Doe",
		Phone:         "0772123456",
		Email:         "Jane@Example.com",
		Region:        "Central",
		Category:      CategoryWakanet,
	}
	require.NoError(t, Validate(valid))

	tests := []struct {
		name  string
		edit  func(*DealerForm)
		field string
		msg   string
	}{
		{"missing name", func(f *DealerForm) { f.Name = "" }, "dealerName", "is required"},
		{"short name", func(f *DealerForm) { f.Name = "K" }, "dealerName", "must be at least 2 characters"},
		{"bad phone", func(f *DealerForm) { f.Phone = "12345" }, "phone", "must be a valid phone number"},
		{"bad email", func(f *DealerForm) { f.Email = "jane" }, "email", "must be a valid email address"},
		{"bad category", func(f *DealerForm) { f.Category = "retail" }, "category", "must be one of: wakanet, enterprise, both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid
			tt.edit(&form)

			err := Validate(form)
			require.Error(t, err)

			var fe FieldErrors
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.msg, fe[tt.field])
			assert.Len(t, fe, 1)
			assert.True(t, errors.Is(err, perrors.ErrValidation))
		})
	}
}

func TestValidateCollectsAllFields(t *testing.T) {
	err := Validate(SignInForm{})
	require.Error(t, err)

	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, []string{"email", "password"}, fe.Fields())
	assert.Equal(t, "email is required; password is required", fe.Error())
}

func TestDealerFormInput(t *testing.T) {
	in, err := DealerForm{
		Name:          " Kampala Mobile Ltd ",
		ContactPerson: "Jane Doe",
		Phone:         "+256 772-123456",
		Email:         "Jane@Example.com",
		Region:        "Central",
		Category:      CategoryBoth,
	}.Input()
	require.NoError(t, err)

	assert.Equal(t, "Kampala Mobile Ltd", in.Name)
	assert.Equal(t, "256772123456", in.Phone)
	assert.Equal(t, "jane@example.com", in.Email)
}

func TestAgentFormInput(t *testing.T) {
	in, err := AgentForm{Name: "John", Phone: "0701234567", NIN: "cm12345678abcd", DealerID: "7"}.Input()
	require.NoError(t, err)
	assert.Equal(t, "256701234567", in.Phone)
	assert.Equal(t, "CM12345678ABCD", in.NIN)

	_, err = AgentForm{Name: "John", Phone: "0701234567"}.Input()
	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "dealerId")
}

func TestBundleActivationFormInput(t *testing.T) {
	in, err := BundleActivationForm{MSISDN: "0772123456", BundleCode: "wk30gb"}.Input()
	require.NoError(t, err)
	assert.Equal(t, "256772123456", in.MSISDN)
	assert.Equal(t, "WK30GB", in.BundleCode)

	err = Validate(BundleActivationForm{MSISDN: "0772123456", BundleCode: "WK 30"})
	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "must contain only letters and digits", fe["bundleCode"])
}

func TestShopFormInput(t *testing.T) {
	in, err := ShopForm{Name: "Main St", DealerID: "3", Location: " Plot 4 ", Region: "West"}.Input()
	require.NoError(t, err)
	assert.Equal(t, "Plot 4", in.Location)
}

func TestIMEIForm(t *testing.T) {
	assert.NoError(t, Validate(IMEIForm{IMEI: "356938035643809"}))
	assert.Error(t, Validate(IMEIForm{IMEI: "356938035643808"}))
}
