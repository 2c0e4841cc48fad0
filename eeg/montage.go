package eeg

import "math"

// StandardElectrodeNames is the 64-electrode scalp layout in BioSemi
// acquisition order. Result sheets use these as row labels; channel counts
// beyond the list fall back to generic names.
var StandardElectrodeNames = []string{
	"Fp1", "AF7", "AF3", "F1", "F3", "F5", "F7", "FT7", "FC5", "FC3",
	"FC1", "C1", "C3", "C5", "T7", "TP7", "CP5", "CP3", "CP1", "P1",
	"P3", "P5", "P7", "P9", "PO7", "PO3", "O1", "Iz", "Oz", "POz", "Pz",
	"CPz", "Fpz", "Fp2", "AF8", "AF4", "AFz", "Fz", "F2", "F4", "F6",
	"F8", "FT8", "FC6", "FC4", "FC2", "FCz", "Cz", "C2", "C4", "C6",
	"T8", "TP8", "CP6", "CP4", "CP2", "P2", "P4", "P6", "P8", "P10",
	"PO8", "PO4", "O2",
}

// headRadius is the sphere radius (meters) used for electrode coordinates.
const headRadius = 0.095

// sphericalAngles holds {theta, phi} in degrees for each electrode of the
// extended 10-20 layout: theta is the inclination from the vertex (Cz = 0),
// phi is the azimuth in the head plane measured counterclockwise from the
// right pre-auricular axis (T8 = 0, nasion = 90, T7 = 180).
var sphericalAngles = map[string][2]float64{
	// midline
	"Fpz": {92, 90}, "AFz": {69, 90}, "Fz": {46, 90}, "FCz": {23, 90},
	"Cz": {0, 0}, "CPz": {23, -90}, "Pz": {46, -90}, "POz": {69, -90},
	"Oz": {92, -90}, "Iz": {115, -90},
	// left hemisphere
	"Fp1": {92, 108}, "AF7": {92, 128}, "AF3": {74, 113},
	"F7": {92, 144}, "F5": {75, 139}, "F3": {62, 129}, "F1": {54, 111},
	"FT7": {92, 162}, "FC5": {72, 158}, "FC3": {50, 148}, "FC1": {32, 122},
	"T7": {92, 180}, "C5": {69, 180}, "C3": {46, 180}, "C1": {23, 180},
	"TP7": {92, 198}, "CP5": {72, 202}, "CP3": {50, 212}, "CP1": {32, 238},
	"P7": {92, 216}, "P5": {75, 221}, "P3": {62, 231}, "P1": {54, 249},
	"P9": {115, 216}, "PO7": {92, 232}, "PO3": {74, 247}, "O1": {92, 252},
	// right hemisphere (mirrored)
	"Fp2": {92, 72}, "AF8": {92, 52}, "AF4": {74, 67},
	"F8": {92, 36}, "F6": {75, 41}, "F4": {62, 51}, "F2": {54, 69},
	"FT8": {92, 18}, "FC6": {72, 22}, "FC4": {50, 32}, "FC2": {32, 58},
	"T8": {92, 0}, "C6": {69, 0}, "C4": {46, 0}, "C2": {23, 0},
	"TP8": {92, -18}, "CP6": {72, -22}, "CP4": {50, -32}, "CP2": {32, -58},
	"P8": {92, -36}, "P6": {75, -41}, "P4": {62, -51}, "P2": {54, -69},
	"P10": {115, -36}, "PO8": {92, -52}, "PO4": {74, -67}, "O2": {92, -72},
}

// StandardMontage returns the electrode-name to 3-D coordinate template for
// the extended 10-20 scalp layout. Coordinates are on a sphere of headRadius
// with x toward the right ear, y toward the nasion, z toward the vertex.
func StandardMontage() map[string][3]float64 {
	positions := make(map[string][3]float64, len(sphericalAngles))
	for name, angles := range sphericalAngles {
		theta := angles[0] * math.Pi / 180
		phi := angles[1] * math.Pi / 180
		positions[name] = [3]float64{
			headRadius * math.Sin(theta) * math.Cos(phi),
			headRadius * math.Sin(theta) * math.Sin(phi),
			headRadius * math.Cos(theta),
		}
	}
	return positions
}

// ApplyMontage attaches template positions to a recording by exact name
// match. Channels absent from the template are left without positions;
// the returned count is the number of matched channels.
func (r *Recording) ApplyMontage(template map[string][3]float64) int {
	if r.Positions == nil {
		r.Positions = make(map[string][3]float64)
	}
	matched := 0
	for _, ch := range r.ChannelNames {
		if pos, ok := template[ch]; ok {
			r.Positions[ch] = pos
			matched++
		}
	}
	return matched
}
