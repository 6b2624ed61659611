package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

func TestParseInt(t *testing.T) {
	for in, want := range map[string]int64{
		"42":      42,
		"000123":  123,
		"46601.0": 46601,
		" 7.00 ":  7,
		"-3":      -3,
		"+5":      5,
	} {
		got, err := ParseInt(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "abc", "1.5", "1e3", "12a", ".0", "-.0", "+.0", "."} {
		_, err := ParseInt(in)
		assert.Error(t, err, in)
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{
		"2024-03-05",
		"2024/03/05",
		"03/05/2024",
		"2024-03-05 14:30:00",
		"2024-03-05T23:10:00+05:30",
		"Mar 5, 2024",
		"5 Mar 2024",
	} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, "2024-03-05", got.Format(models.DateLayout), in)
	}

	for _, in := range []string{"", "2024-02-30", "yesterday", "13/13/2024"} {
		_, err := ParseDate(in)
		assert.Error(t, err, in)
	}
}

func TestNormalizeGender(t *testing.T) {
	assert.Equal(t, models.GenderMale, NormalizeGender(" Male "))
	assert.Equal(t, models.GenderMale, NormalizeGender("m"))
	assert.Equal(t, models.GenderFemale, NormalizeGender("FEMALE"))
	assert.Equal(t, models.GenderFemale, NormalizeGender("f"))
	assert.Equal(t, models.GenderOther, NormalizeGender(""))
	assert.Equal(t, models.GenderOther, NormalizeGender("non-binary"))
}

func TestNormalizeEnums(t *testing.T) {
	assert.Equal(t, models.StatusCompleted, NormalizeStatus("COMPLETED"))
	assert.Equal(t, models.StatusCancelled, NormalizeStatus("canceled"))
	assert.Equal(t, models.PaymentPending, NormalizePaymentStatus(" pending"))
	assert.Equal(t, models.MethodUPI, NormalizePaymentMethod("upi"))
	assert.Equal(t, models.MethodCard, NormalizePaymentMethod("Debit Card"))
	assert.Equal(t, models.PaymentMethod("Cheque"), NormalizePaymentMethod(" Cheque "))
}
