package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsImageName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"cat.jpg", true},
		{"cat.JPEG", true},
		{"cat.Png", true},
		{"cat.gif", false},
		{"cat", false},
		{".jpg", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsImageName(tt.name))
		})
	}
}

func TestValidateEntryUpdate_UnsafeFilename(t *testing.T) {
	for _, name := range []string{"sub/new.png", `a\b.jpg`, "../cat.jpg"} {
		t.Run(name, func(t *testing.T) {
			_, err := validateEntryUpdate(EntryUpdate{ID: "X", Title: "t", Rating: 1, Filename: name, Bytes: b64("x")})
			ve, ok := AsValidationError(err)
			require.True(t, ok)
			assert.Equal(t, MsgPictureRequired, ve[FieldPicture])
		})
	}
}

func TestValidateEntryUpdate_NoBytes(t *testing.T) {
	data, err := validateEntryUpdate(EntryUpdate{ID: "X", Title: "t", Rating: 1})
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestValidateEntryUpdate_RatingMessage(t *testing.T) {
	_, err := validateEntryUpdate(EntryUpdate{ID: "X", Title: "t", Rating: 42})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, MsgRatingRange, ve[FieldRating])
	assert.Len(t, ve, 1)
}

func TestValidationError_Error(t *testing.T) {
	ve := ValidationError{FieldTitle: MsgTitleRequired, FieldPicture: MsgPictureRequired}
	assert.Equal(t,
		"invalid entry: picture: "+MsgPictureRequired+"; title: "+MsgTitleRequired,
		ve.Error(),
	)
}
