// Package labels maps detector class ids to human readable names.
//
// The vocabulary is the 80-class COCO set used by the YOLO family of
// detectors that feed this service.
package labels

import (
	"strconv"
	"strings"
)

var coco = [...]string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog",
	"horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella",
	"handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite",
	"baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket", "bottle",
	"wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch", "potted plant",
	"bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote", "keyboard", "cell phone",
	"microwave", "oven", "toaster", "sink", "refrigerator", "book", "clock", "vase", "scissors",
	"teddy bear", "hair drier", "toothbrush",
}

// Name returns the upper-cased label for classID. Ids outside the
// vocabulary get a synthetic "CLASS_<id>" name.
func Name(classID int) string {
	if classID < 0 || classID >= len(coco) {
		return "CLASS_" + strconv.Itoa(classID)
	}
	return strings.ToUpper(coco[classID])
}

// Normalize returns label upper-cased, falling back to Name(classID) when
// the detector did not send one.
func Normalize(classID int, label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return Name(classID)
	}
	return strings.ToUpper(label)
}
