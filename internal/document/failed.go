package document

import (
	"encoding/base64"
	"image/color"

	"github.com/ziadkadry99/sitesmith/internal/imagegen"
)

// FailedImageURL is the image reference used when rendering an image
// fails. It is a small neutral grey 16:9 JPEG so it previews and exports
// without network access.
var FailedImageURL = "data:image/jpeg;base64," +
	base64.StdEncoding.EncodeToString(imagegen.SolidJPEG(160, 90, color.Gray{Y: 0xcc}))
