package region

import "github.com/paulmach/orb"

type entry struct {
	id                           string
	lat, lon, latDelta, lonDelta float64
}

// 内置区域：中心纬度、经度、纬度跨度、经度跨度
var builtin = []entry{
	{"amsterdamSRTM", 52.321911, 4.833984, 0.322, 0.879},
	{"athensSRTM", 37.996163, 23.730469, 0.554, 0.703},
	{"aucklandSRTM", -36.879621, 174.726562, 0.562, 0.703},
	{"bangkokSRTM", 13.752725, 100.546875, 0.683, 0.703},
	{"barcelonaSRTM", 41.442726, 2.109375, 0.395, 0.703},
	{"berlinSRTM", 52.482780, 13.359375, 0.428, 0.703},
	{"brusselsSRTM", 50.847573, 4.394531, 0.222, 0.352},
	{"buenosAiresSRTM", -34.597042, -58.447266, 0.579, 0.879},
	{"cairoSRTM", 30.069094, 31.201172, 0.456, 0.879},
	{"capeTownSRTM", -34.089061, 18.632812, 0.728, 0.703},
	{"chennaiSRTM", 13.068777, 80.244141, 0.685, 0.527},
	{"copenhagenSRTM", 55.677584, 12.744141, 0.396, 0.879},
	{"dhakaSRTM", 23.805450, 90.439453, 0.482, 0.527},
	{"dubaiSRTM", 25.165173, 55.283203, 0.636, 0.879},
	{"dublinSRTM", 53.330873, -6.328125, 0.420, 0.703},
	{"edinburghSRTM", 55.973798, -3.251953, 0.197, 0.527},
	{"guangzhouSRTM", 23.160563, 113.291016, 0.808, 0.527},
	{"hanoiSRTM", 21.043491, 105.820312, 0.492, 0.703},
	{"havanaSRTM", 23.079732, -82.265625, 0.323, 0.703},
	{"hoChiMinhCitySRTM", 10.746969, 106.787109, 0.863, 0.879},
	{"hongKongSRTM", 22.431340, 114.082031, 0.650, 0.703},
	{"istanbulSRTM", 41.046217, 29.003906, 0.663, 1.055},
	{"jakartaSRTM", -6.315299, 106.787109, 0.699, 0.527},
	{"karachiSRTM", 24.926295, 67.060547, 0.478, 0.879},
	{"kolkataSRTM", 22.674847, 88.330078, 0.811, 0.527},
	{"kualaLumpurSRTM", 3.074695, 101.513672, 0.527, 0.879},
	{"lagosSRTM", 6.577303, 3.339844, 0.524, 0.703},
	{"limaSRTM", -12.039321, -77.080078, 0.688, 0.527},
	{"lisbonSRTM", 38.685510, -9.140625, 0.549, 0.703},
	{"londonSRTM", 51.508742, -0.175781, 0.438, 0.703},
	{"manilaSRTM", 14.604847, 121.025391, 0.680, 0.527},
	{"melbourneSRTM", -33.578015, 145.019531, 0.586, 0.703},
	{"miamiSRTM", 26.194877, -80.244141, 1.735, 0.527},
	{"montrealSRTM", 45.583290, -73.652344, 0.492, 0.703},
	{"mumbaiSRTM", 19.145168, 72.949219, 0.664, 0.703},
	{"newYorkCitySRTM", 40.713956, -74.003906, 0.533, 0.703},
	{"osakaSRTM", 34.597042, 135.351562, 0.579, 0.703},
	{"panamaCanalSRTM", 9.102097, -79.628906, 0.694, 0.703},
	{"parisSRTM", 48.864715, 2.373047, 0.347, 0.527},
	{"phnomPenhSRTM", 11.609193, 104.853516, 0.517, 0.527},
	{"pyongyangSRTM", 39.095963, 125.771484, 0.546, 0.527},
	{"rioDeJaneiroSRTM", -22.917923, -43.330078, 0.648, 0.879},
	{"romeSRTM", 41.902277, 12.480469, 0.523, 0.703},
	{"seoulSRTM", 37.509726, 126.738281, 0.418, 1.055},
	{"shanghaiSRTM", 31.203405, 121.552734, 0.601, 0.879},
	{"singaporeSRTM", 1.318243, 103.886719, 0.527, 0.703},
	{"stockholmSRTM", 59.355596, 18.105469, 0.358, 0.703},
	{"sydneySRTM", -33.870416, 150.908203, 0.584, 0.879},
	{"taipeiSRTM", 25.085599, 121.464844, 0.478, 0.703},
	{"telAvivSRTM", 32.026706, 34.804688, 0.447, 0.352},
	{"tokyoSRTM", 35.675147, 139.833984, 0.714, 0.879},
	{"veniceSRTM", 45.336702, 12.480469, 0.494, 0.703},
}

// Builtin 内置区域列表
func Builtin() []Region {
	out := make([]Region, 0, len(builtin))
	for _, e := range builtin {
		out = append(out, Region{
			ID:       e.id,
			Center:   orb.Point{e.lon, e.lat},
			LatDelta: e.latDelta,
			LonDelta: e.lonDelta,
		})
	}
	return out
}

// Default 内置目录
func Default() *Catalog {
	c, err := NewCatalog(Builtin())
	if err != nil {
		panic(err)
	}
	return c
}
