package texture

const (
	UVMapping                        = 300
	CubeReflectionMapping            = 301
	CubeRefractionMapping            = 302
	EquirectangularReflectionMapping = 303
	EquirectangularRefractionMapping = 304
	SphericalReflectionMapping       = 305
	CubeUVReflectionMapping          = 306
	CubeUVRefractionMapping          = 307
)

const (
	RepeatWrapping         = 1000
	ClampToEdgeWrapping    = 1001
	MirroredRepeatWrapping = 1002
)

const (
	NearestFilter              = 1003
	NearestMipMapNearestFilter = 1004
	NearestMipMapLinearFilter  = 1005
	LinearFilter               = 1006
	LinearMipMapNearestFilter  = 1007
	LinearMipMapLinearFilter   = 1008
)

var mappingNames = map[string]int{
	"UVMapping":                        UVMapping,
	"CubeReflectionMapping":            CubeReflectionMapping,
	"CubeRefractionMapping":            CubeRefractionMapping,
	"EquirectangularReflectionMapping": EquirectangularReflectionMapping,
	"EquirectangularRefractionMapping": EquirectangularRefractionMapping,
	"SphericalReflectionMapping":       SphericalReflectionMapping,
	"CubeUVReflectionMapping":          CubeUVReflectionMapping,
	"CubeUVRefractionMapping":          CubeUVRefractionMapping,
}

var wrappingNames = map[string]int{
	"RepeatWrapping":         RepeatWrapping,
	"ClampToEdgeWrapping":    ClampToEdgeWrapping,
	"MirroredRepeatWrapping": MirroredRepeatWrapping,
}

var filterNames = map[string]int{
	"NearestFilter":              NearestFilter,
	"NearestMipMapNearestFilter": NearestMipMapNearestFilter,
	"NearestMipMapLinearFilter":  NearestMipMapLinearFilter,
	"LinearFilter":               LinearFilter,
	"LinearMipMapNearestFilter":  LinearMipMapNearestFilter,
	"LinearMipMapLinearFilter":   LinearMipMapLinearFilter,
}

// FilterName is the symbolic name of a filter code, empty for unknown codes.
func FilterName(code int) string {
	for name, c := range filterNames {
		if c == code {
			return name
		}
	}
	return ""
}

func WrappingName(code int) string {
	for name, c := range wrappingNames {
		if c == code {
			return name
		}
	}
	return ""
}
