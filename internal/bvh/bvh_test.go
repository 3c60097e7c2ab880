package bvh

import "strings"

import "testing"

const sample = `HIERARCHY
ROOT Hips
{
	OFFSET 0.0 0.0 0.0
	CHANNELS 6 Xposition Yposition Zposition Zrotation Xrotation Yrotation
	JOINT Spine
	{
		OFFSET 0.0 10.0 0.0
		CHANNELS 3 Zrotation Xrotation Yrotation
		JOINT Head
		{
			OFFSET 0.0 15.0 0.0
			CHANNELS 3 Zrotation Xrotation Yrotation
			End Site
			{
				OFFSET 0.0 5.0 0.0
			}
		}
	}
	JOINT LeftLeg
	{
		OFFSET -5.0 0.0 0.0
		CHANNELS 3 Zrotation Xrotation Yrotation
		End Site
		{
			OFFSET 0.0 -10.0 0.0
		}
	}
}
MOTION
Frames: 1
Frame Time: 0.0333333
0 0 0 0 0 0 0 0 0 0 0 0
`

func TestParseHierarchy(t *testing.T) {
	joints, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []string{"Hips", "Spine", "Head", "LeftLeg"}
	if len(joints) != len(want) {
		t.Fatalf("expected %d joints, got %d: %+v", len(want), len(joints), joints)
	}
	for i, name := range want {
		if joints[i].Name != name {
			t.Fatalf("joint %d: expected %q, got %q", i, name, joints[i].Name)
		}
	}

	if joints[0].Parent != -1 {
		t.Fatalf("expected Hips to be root, got parent %d", joints[0].Parent)
	}
	if joints[1].Parent != 0 {
		t.Fatalf("expected Spine's parent to be Hips (0), got %d", joints[1].Parent)
	}
	if joints[2].Parent != 1 {
		t.Fatalf("expected Head's parent to be Spine (1), got %d", joints[2].Parent)
	}
	if joints[3].Parent != 0 {
		t.Fatalf("expected LeftLeg's parent to be Hips (0), got %d", joints[3].Parent)
	}
	if joints[1].Offset != [3]float64{0, 10, 0} {
		t.Fatalf("unexpected Spine offset: %+v", joints[1].Offset)
	}
}

func TestParseRejectsJointOutsideHierarchy(t *testing.T) {
	_, err := Parse(strings.NewReader("JOINT Foo\n{\n}\n"))
	if err == nil {
		t.Fatal("expected error for JOINT with no open parent")
	}
}
