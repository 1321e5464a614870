package taskgraph

import "testing"

func recTask(id int, name string, atts ...Attachment) recordedTask {
	return recordedTask{task: newImplTask(id, TaskInfo{Name: name, Attachments: atts})}
}

func TestValidateNoCycles_LinearChainOK(t *testing.T) {
	buf := newViewID[taskBufferMarker](0)
	recorded := []recordedTask{
		recTask(0, "write", BufferAttachment("b", buf, BufferAccessShaderWrite)),
		recTask(1, "read1", BufferAttachment("b", buf, BufferAccessShaderRead)),
		recTask(2, "read2", BufferAttachment("b", buf, BufferAccessShaderRead)),
	}
	if err := validateNoCycles(recorded); err != nil {
		t.Errorf("validateNoCycles on a well-ordered read/write chain returned %v, want nil", err)
	}
}

func TestValidateNoCycles_MultipleReadersThenWriterOK(t *testing.T) {
	buf := newViewID[taskBufferMarker](0)
	recorded := []recordedTask{
		recTask(0, "read1", BufferAttachment("b", buf, BufferAccessShaderRead)),
		recTask(1, "read2", BufferAttachment("b", buf, BufferAccessShaderRead)),
		recTask(2, "write", BufferAttachment("b", buf, BufferAccessShaderWrite)),
	}
	if err := validateNoCycles(recorded); err != nil {
		t.Errorf("validateNoCycles on multiple readers followed by a writer returned %v, want nil", err)
	}
}

func TestValidateNoCycles_ImagesAndBuffersTogetherOK(t *testing.T) {
	buf := newViewID[taskBufferMarker](0)
	img := newViewID[taskImageMarker](0)
	recorded := []recordedTask{
		recTask(0, "write-both",
			BufferAttachment("b", buf, BufferAccessShaderWrite),
			ImageAttachment("i", img, ImageAccessShaderWrite)),
		recTask(1, "read-both",
			BufferAttachment("b", buf, BufferAccessShaderRead),
			ImageAttachment("i", img, ImageAccessShaderRead)),
	}
	if err := validateNoCycles(recorded); err != nil {
		t.Errorf("validateNoCycles with mixed buffer/image attachments returned %v, want nil", err)
	}
}

func TestValidateNoCycles_SameTaskMultipleAttachmentsToSameResourceOK(t *testing.T) {
	buf := newViewID[taskBufferMarker](0)
	recorded := []recordedTask{
		recTask(0, "write", BufferAttachment("b", buf, BufferAccessShaderWrite)),
		// Two attachments in the same task referencing the same producer
		// would otherwise add a duplicate edge; isBenignDAGError must
		// swallow that without surfacing a validation failure.
		recTask(1, "double-read",
			BufferAttachment("b1", buf, BufferAccessShaderRead),
			BufferAttachment("b2", buf, BufferAccessShaderRead)),
	}
	if err := validateNoCycles(recorded); err != nil {
		t.Errorf("validateNoCycles with a duplicate dependency edge returned %v, want nil (benign)", err)
	}
}

func TestTaskVertex_ID(t *testing.T) {
	v := taskVertex{id: 7}
	if got, want := v.ID(), "task-7"; got != want {
		t.Errorf("taskVertex{7}.ID() = %q, want %q", got, want)
	}
}
