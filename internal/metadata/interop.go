package metadata

import "strconv"

// UnmanagedType is the kind tag carried as the first positional argument of a
// marshal-override record. Values match the stored enum integers.
type UnmanagedType int64

const (
	UTBool            UnmanagedType = 2
	UTI1              UnmanagedType = 3
	UTU1              UnmanagedType = 4
	UTI2              UnmanagedType = 5
	UTU2              UnmanagedType = 6
	UTI4              UnmanagedType = 7
	UTU4              UnmanagedType = 8
	UTI8              UnmanagedType = 9
	UTU8              UnmanagedType = 10
	UTR4              UnmanagedType = 11
	UTR8              UnmanagedType = 12
	UTCurrency        UnmanagedType = 15
	UTBStr            UnmanagedType = 19
	UTLPStr           UnmanagedType = 20
	UTLPWStr          UnmanagedType = 21
	UTLPTStr          UnmanagedType = 22
	UTByValTStr       UnmanagedType = 23
	UTIUnknown        UnmanagedType = 25
	UTIDispatch       UnmanagedType = 26
	UTStruct          UnmanagedType = 27
	UTInterface       UnmanagedType = 28
	UTSafeArray       UnmanagedType = 29
	UTByValArray      UnmanagedType = 30
	UTSysInt          UnmanagedType = 31
	UTSysUInt         UnmanagedType = 32
	UTVBByRefStr      UnmanagedType = 34
	UTAnsiBStr        UnmanagedType = 35
	UTTBStr           UnmanagedType = 36
	UTVariantBool     UnmanagedType = 37
	UTFunctionPtr     UnmanagedType = 38
	UTAsAny           UnmanagedType = 40
	UTLPArray         UnmanagedType = 42
	UTLPStruct        UnmanagedType = 43
	UTCustomMarshaler UnmanagedType = 44
	UTError           UnmanagedType = 45
	UTIInspectable    UnmanagedType = 46
	UTHString         UnmanagedType = 47
	UTLPUTF8Str       UnmanagedType = 48
)

var unmanagedNames = map[UnmanagedType]string{
	UTBool: "Bool", UTI1: "I1", UTU1: "U1", UTI2: "I2", UTU2: "U2", UTI4: "I4",
	UTU4: "U4", UTI8: "I8", UTU8: "U8", UTR4: "R4", UTR8: "R8",
	UTCurrency: "Currency", UTBStr: "BStr", UTLPStr: "LPStr", UTLPWStr: "LPWStr",
	UTLPTStr: "LPTStr", UTByValTStr: "ByValTStr", UTIUnknown: "IUnknown",
	UTIDispatch: "IDispatch", UTStruct: "Struct", UTInterface: "Interface",
	UTSafeArray: "SafeArray", UTByValArray: "ByValArray", UTSysInt: "SysInt",
	UTSysUInt: "SysUInt", UTVBByRefStr: "VBByRefStr", UTAnsiBStr: "AnsiBStr",
	UTTBStr: "TBStr", UTVariantBool: "VariantBool", UTFunctionPtr: "FunctionPtr",
	UTAsAny: "AsAny", UTLPArray: "LPArray", UTLPStruct: "LPStruct",
	UTCustomMarshaler: "CustomMarshaler", UTError: "Error",
	UTIInspectable: "IInspectable", UTHString: "HString", UTLPUTF8Str: "LPUTF8Str",
}

func (u UnmanagedType) String() string {
	if name, ok := unmanagedNames[u]; ok {
		return name
	}
	return "UnmanagedType(" + strconv.FormatInt(int64(u), 10) + ")"
}

// ParseUnmanagedType maps a kind name (as written in pack descriptions) to its tag.
func ParseUnmanagedType(name string) (UnmanagedType, bool) {
	for k, v := range unmanagedNames {
		if v == name {
			return k, true
		}
	}
	return 0, false
}

// VarEnum is the variant sub-type of a safe array. The low 12 bits select the
// base type; VTVector, VTArray and VTByRef are modifier flags.
type VarEnum int64

const (
	VTEmpty          VarEnum = 0
	VTNull           VarEnum = 1
	VTI2             VarEnum = 2
	VTI4             VarEnum = 3
	VTR4             VarEnum = 4
	VTR8             VarEnum = 5
	VTCY             VarEnum = 6
	VTDate           VarEnum = 7
	VTBStr           VarEnum = 8
	VTDispatch       VarEnum = 9
	VTError          VarEnum = 10
	VTBool           VarEnum = 11
	VTVariant        VarEnum = 12
	VTUnknown        VarEnum = 13
	VTDecimal        VarEnum = 14
	VTI1             VarEnum = 16
	VTUI1            VarEnum = 17
	VTUI2            VarEnum = 18
	VTUI4            VarEnum = 19
	VTI8             VarEnum = 20
	VTUI8            VarEnum = 21
	VTInt            VarEnum = 22
	VTUInt           VarEnum = 23
	VTVoid           VarEnum = 24
	VTHResult        VarEnum = 25
	VTPtr            VarEnum = 26
	VTSafeArray      VarEnum = 27
	VTCArray         VarEnum = 28
	VTUserDefined    VarEnum = 29
	VTLPStr          VarEnum = 30
	VTLPWStr         VarEnum = 31
	VTRecord         VarEnum = 36
	VTFileTime       VarEnum = 64
	VTBlob           VarEnum = 65
	VTStream         VarEnum = 66
	VTStorage        VarEnum = 67
	VTStreamedObject VarEnum = 68
	VTStoredObject   VarEnum = 69
	VTBlobObject     VarEnum = 70
	VTCF             VarEnum = 71
	VTCLSID          VarEnum = 72

	VTVector VarEnum = 0x1000
	VTArray  VarEnum = 0x2000
	VTByRef  VarEnum = 0x4000

	VTTypeMask VarEnum = 0x0fff
)
