package body

import "github.com/obplab/swingmech/internal/marker"

// Model is the rigid-body description of a batter: segments with their
// marker-derived axis definitions and the joints connecting them.
type Model struct {
	Segments []*Segment
	Joints   []*Joint
}

// StandardModel returns the marker-set model used for swing analysis:
// nine segments per side and six joints per side. Lower-limb axis
// definitions follow the ISB recommendation (Wu et al., J Biomech 2002).
func StandardModel() *Model {
	scapulaR := &Segment{Name: "scapula_r", Origin: "scapula_r", Y: &Pair{"torso_m", "thorax_m"}, YZ: &Pair{"torso_m", "RSHO"}}
	scapulaL := &Segment{Name: "scapula_l", Origin: "scapula_l", Y: &Pair{"torso_m", "thorax_m"}, YZ: &Pair{"torso_m", "LSHO"}}
	upperArmR := &Segment{Name: "upper_arm_r", Origin: "RSHO", Y: &Pair{"RSHO", "elbow_r"}, YZ: &Pair{"RMELB", "RELB"}}
	upperArmL := &Segment{Name: "upper_arm_l", Origin: "LSHO", Y: &Pair{"LSHO", "elbow_l"}, YZ: &Pair{"LMELB", "LELB"}}
	forearmR := &Segment{Name: "forearm_r", Origin: "wrist_r", Y: &Pair{"elbow_r", "wrist_r"}, YZ: &Pair{"RWRA", "RWRB"}}
	forearmL := &Segment{Name: "forearm_l", Origin: "wrist_l", Y: &Pair{"elbow_l", "wrist_l"}, YZ: &Pair{"LWRA", "LWRB"}}
	handR := &Segment{Name: "hand_r", Origin: "RFIN", Y: &Pair{"wrist_r", "RFIN"}, YZ: &Pair{"RWRA", "RWRB"}}
	handL := &Segment{Name: "hand_l", Origin: "LFIN", Y: &Pair{"wrist_l", "LFIN"}, YZ: &Pair{"LWRA", "LWRB"}}

	hipR := &Segment{Name: "hip_r", Origin: "hip_r", Y: &Pair{"thorax_m", "pelvis_m"}, YZ: &Pair{"pelvis_m", "hip_r"}}
	hipL := &Segment{Name: "hip_l", Origin: "hip_l", Y: &Pair{"thorax_m", "pelvis_m"}, YZ: &Pair{"pelvis_m", "hip_l"}}
	upperLegR := &Segment{Name: "upper_leg_r", Origin: "RTHI", Y: &Pair{"hip_r", "knee_r"}, YZ: &Pair{"RMKNE", "RKNE"}}
	upperLegL := &Segment{Name: "upper_leg_l", Origin: "LTHI", Y: &Pair{"hip_l", "knee_l"}, YZ: &Pair{"LMKNE", "LKNE"}}
	lowerLegR := &Segment{Name: "lower_leg_r", Origin: "RTIB", Y: &Pair{"knee_r", "ankle_r"}, YZ: &Pair{"RANK", "RMANK"}}
	lowerLegL := &Segment{Name: "lower_leg_l", Origin: "LTIB", Y: &Pair{"knee_l", "ankle_l"}, YZ: &Pair{"LANK", "LMANK"}}
	heelR := &Segment{Name: "heel_r", Origin: "RHEE", Y: &Pair{"RTIB", "RHEE"}, YZ: &Pair{"RANK", "RMANK"}}
	heelL := &Segment{Name: "heel_l", Origin: "LHEE", Y: &Pair{"LTIB", "LHEE"}, YZ: &Pair{"LMANK", "LANK"}}
	footR := &Segment{Name: "foot_r", Origin: "RTOE", X: &Pair{"RTOE", "RHEE"}, XZ: &Pair{"RANK", "RMANK"}}
	footL := &Segment{Name: "foot_l", Origin: "LTOE", X: &Pair{"LTOE", "LHEE"}, XZ: &Pair{"LMANK", "LANK"}}

	return &Model{
		Segments: []*Segment{
			scapulaR, scapulaL,
			upperArmR, upperArmL,
			forearmR, forearmL,
			handR, handL,
			hipR, hipL,
			upperLegR, upperLegL,
			lowerLegR, lowerLegL,
			heelR, heelL,
			footR, footL,
		},
		Joints: []*Joint{
			newShoulder(scapulaR, upperArmR, "R"),
			newShoulder(scapulaL, upperArmL, "L"),
			newElbow(upperArmR, forearmR, "R"),
			newElbow(upperArmL, forearmL, "L"),
			newWrist(forearmR, handR, "R"),
			newWrist(forearmL, handL, "L"),
			newHip(hipR, upperLegR, "R"),
			newHip(hipL, upperLegL, "L"),
			newKnee(upperLegR, lowerLegR, "R"),
			newKnee(upperLegL, lowerLegL, "L"),
			newAnkle(heelR, footR, "R"),
			newAnkle(heelL, footL, "L"),
		},
	}
}

// Frames builds the axis frames for every segment in the model.
func (m *Model) Frames(s *marker.Series) (FrameSet, error) {
	return BuildFrames(s, m.Segments)
}
