package dates

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_YearOnlyIsJanuaryFirst(t *testing.T) {
	for _, year := range []int{1, 1850, 1900, 1999, 2000, 2024, 9999} {
		text := fmt.Sprintf("%04d", year)
		d, err := Parse(text)
		require.NoError(t, err, text)
		assert.Equal(t, Date{Year: year, Month: 1, Day: 1}, d, text)
	}
}

func TestParse_TwoDigitYearPivot(t *testing.T) {
	cases := map[string]Date{
		"5/11/01": {2001, 5, 11},
		"5/11/49": {2049, 5, 11},
		"5/11/50": {1950, 5, 11},
		"5/11/99": {1999, 5, 11},
		"1/2/00":  {2000, 1, 2},
	}
	for text, want := range cases {
		got, err := Parse(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, got, text)
	}
	assert.Equal(t, 50, CenturyPivot)
}

func TestParse_AcceptedForms(t *testing.T) {
	cases := map[string]Date{
		"5/11/2001":           {2001, 5, 11},
		"05-11-2001":          {2001, 5, 11},
		"12.25.1999":          {1999, 12, 25},
		"5/2001":              {2001, 5, 1},
		"May 11, 2001":        {2001, 5, 11},
		"may 11 2001":         {2001, 5, 11},
		"Sept. 3rd, 1987":     {1987, 9, 3},
		"September 3 1987":    {1987, 9, 3},
		"Dec 1, 64":           {1964, 12, 1},
		"22nd February 2010":  {2010, 2, 22},
		"3 jan 2020":          {2020, 1, 3},
		"March 2015":          {2015, 3, 1},
		"mar, 2015":           {2015, 3, 1},
		"2001-05-11":          {2001, 5, 11},
		"2001-5-1":            {2001, 5, 1},
		"2001-05":             {2001, 5, 1},
		"2001:05:11 10:20:30": {2001, 5, 11},
		"  1994  ":            {1994, 1, 1},
	}
	for text, want := range cases {
		got, err := Parse(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, got, text)
	}
}

func TestParse_Failures(t *testing.T) {
	for _, text := range []string{
		"",
		"not a date",
		"feb 30 2001",
		"Feb 29, 2001",
		"13/1/2001",
		"2001-13-01",
		"0000",
		"May 32, 2001",
		"smarch 3 2001",
		"12345",
	} {
		_, err := Parse(text)
		require.Error(t, err, text)
		assert.ErrorIs(t, err, ErrParse, text)
	}
}

func TestParse_LeapDay(t *testing.T) {
	d, err := Parse("feb 29 2000")
	require.NoError(t, err)
	assert.Equal(t, Date{2000, 2, 29}, d)
}

func TestFormat_ProducesExifDateTime(t *testing.T) {
	cases := map[string]string{
		"1999":        "1999:01:01 00:00:00",
		"5/11/01":     "2001:05:11 00:00:00",
		"May 3, 2010": "2010:05:03 00:00:00",
		"2020-12-31":  "2020:12:31 00:00:00",
		"7/4/1776":    "1776:07:04 00:00:00",
		"jan 2, 0999": "0999:01:02 00:00:00",
	}
	for text, want := range cases {
		d, err := Parse(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, Format(d), text)
	}
}

func TestFormatWithClock_KeepsTimeOfDay(t *testing.T) {
	d := Date{2001, 5, 11}
	assert.Equal(t, "2001:05:11 14:35:07", FormatWithClock(d, &Clock{14, 35, 7}))
	assert.Equal(t, "2001:05:11 00:00:00", FormatWithClock(d, nil))
}

func TestParseEXIF(t *testing.T) {
	d, c, err := ParseEXIF("2001:05:11 14:35:07\x00")
	require.NoError(t, err)
	assert.Equal(t, Date{2001, 5, 11}, d)
	assert.Equal(t, Clock{14, 35, 7}, c)

	d, c, err = ParseEXIF("2001:05:11")
	require.NoError(t, err)
	assert.Equal(t, Date{2001, 5, 11}, d)
	assert.Equal(t, Clock{}, c)

	out := FormatWithClock(Date{1988, 2, 29}, &Clock{23, 59, 59})
	d, c, err = ParseEXIF(out)
	require.NoError(t, err)
	assert.Equal(t, out, FormatWithClock(d, &c))

	for _, bad := range []string{"", "    :  :     :  :  ", "2001:02:30 00:00:00", "2001:05:11 25:00:00"} {
		_, _, err := ParseEXIF(bad)
		assert.ErrorIs(t, err, ErrParse, bad)
	}
}

func TestDate_String(t *testing.T) {
	assert.Equal(t, "May 11, 2001", Date{2001, 5, 11}.String())
}
