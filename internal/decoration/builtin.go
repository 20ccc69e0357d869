package decoration

// builtInName maps the subset of the SPIR-V BuiltIn enumerant this
// interpreter recognizes to a readable name, used to tag interface
// variables (gl_Position, gl_VertexIndex, ...) for the program orchestrator.
// Values match the SPIR-V specification's BuiltIn enum.
func builtInName(code uint32) string {
	switch code {
	case 0:
		return "Position"
	case 1:
		return "PointSize"
	case 3:
		return "ClipDistance"
	case 4:
		return "CullDistance"
	case 5:
		return "VertexId"
	case 6:
		return "InstanceId"
	case 7:
		return "PrimitiveId"
	case 8:
		return "InvocationId"
	case 15:
		return "FragCoord"
	case 17:
		return "FrontFacing"
	case 20:
		return "SampleId"
	case 24:
		return "FragDepth"
	case 26:
		return "NumWorkgroups"
	case 28:
		return "WorkgroupId"
	case 29:
		return "LocalInvocationId"
	case 30:
		return "GlobalInvocationId"
	case 31:
		return "LocalInvocationIndex"
	case 42:
		return "VertexIndex"
	case 43:
		return "InstanceIndex"
	case 4416:
		return "LaunchIdKHR"
	case 4417:
		return "LaunchSizeKHR"
	case 4430:
		return "WorldRayOriginKHR"
	case 4431:
		return "WorldRayDirectionKHR"
	case 4432:
		return "ObjectRayOriginKHR"
	case 4433:
		return "ObjectRayDirectionKHR"
	case 4434:
		return "RayTminKHR"
	case 4435:
		return "RayTmaxKHR"
	case 4436:
		return "InstanceCustomIndexKHR"
	case 4437:
		return "ObjectToWorldKHR"
	case 4438:
		return "WorldToObjectKHR"
	case 4440:
		return "HitKindKHR"
	default:
		return "Unknown"
	}
}
